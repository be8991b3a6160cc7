package grouping

import (
	"errors"

	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
)

var ErrGroupInvalidated = errors.New("group values are no longer valid")

// Group is a run of entries sharing the same key.
type Group struct {
	Key      interface{}
	RawKey   []byte
	Position shuffle.Position
	Values   *Values
}

// Values iterates lazily over the values of a group. It is single pass and
// becomes invalid once the reader advances.
type Values struct {
	r          *Reader
	generation uint64
	value      interface{}
	raw        []byte
	position   shuffle.Position
	err        error
	done       bool
}

// Next decodes the next value. It returns false when the group is exhausted or
// an error occurred; see Err.
func (v *Values) Next() bool {
	if v.done {
		return false
	}
	if v.generation != v.r.generation {
		return v.stop(ErrGroupInvalidated)
	}
	entry, err := v.r.nextInGroup()
	if err != nil {
		v.r.fail(err)
		return v.stop(err)
	}
	if entry == nil {
		return v.stop(nil)
	}
	decoded, err := v.r.valueCoder.Decode(entry.Value)
	if err != nil {
		v.r.counters.decodeErrors.Add(1)
		decodeErr := &worker.DecodeError{Position: entry.Position, Err: err}
		v.r.fail(decodeErr)
		return v.stop(decodeErr)
	}
	v.r.counters.valuesRead.Add(1)
	v.value, v.raw, v.position = decoded, entry.Value, entry.Position
	return true
}

func (v *Values) stop(err error) bool {
	v.done = true
	v.err = err
	v.value, v.raw = nil, nil
	return false
}

// Value returns the value decoded by the last call to Next.
func (v *Values) Value() interface{} { return v.value }

// RawValue returns the encoded form of Value.
func (v *Values) RawValue() []byte { return v.raw }

// Position returns the position of the entry holding Value.
func (v *Values) Position() shuffle.Position { return v.position }

func (v *Values) Err() error { return v.err }
