package shuffle

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"
)

var positionEncoding = base64.RawURLEncoding.Strict()

// MalformedPositionError is returned when a position wire encoding is not valid
// unpadded URL-safe base64.
type MalformedPositionError struct {
	Encoded string
	Err     error
}

func (e *MalformedPositionError) Error() string {
	return fmt.Sprintf("malformed shuffle position %q: %v", e.Encoded, e.Err)
}
func (e *MalformedPositionError) Unwrap() error { return e.Err }

// Position is an opaque location in the sorted key space of a shuffle shard.
// Positions are ordered by unsigned lexicographic comparison of their bytes.
// The zero value is the absent position.
type Position struct {
	raw string
}

// FromBytes builds a position from raw bytes. Empty input yields the absent position.
func FromBytes(b []byte) Position {
	return Position{raw: string(b)}
}

// FromBase64 decodes a position from its wire encoding. An empty string yields
// the absent position.
func FromBase64(s string) (Position, error) {
	if s == "" {
		return Position{}, nil
	}
	if strings.ContainsAny(s, "\r\n") {
		return Position{}, &MalformedPositionError{Encoded: s, Err: base64.CorruptInputError(strings.IndexAny(s, "\r\n"))}
	}
	b, err := positionEncoding.DecodeString(s)
	if err != nil {
		return Position{}, &MalformedPositionError{Encoded: s, Err: err}
	}
	return FromBytes(b), nil
}

// MustFromBase64 is like FromBase64 but panics on malformed input.
func MustFromBase64(s string) Position {
	p, err := FromBase64(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Position) IsZero() bool { return len(p.raw) == 0 }

// Bytes returns a copy of the raw position bytes.
func (p Position) Bytes() []byte {
	if p.IsZero() {
		return nil
	}
	return []byte(p.raw)
}

func (p Position) EncodeBase64() string {
	return positionEncoding.EncodeToString([]byte(p.raw))
}

// Compare returns -1, 0 or 1. Go string comparison is bytewise and unsigned.
func (p Position) Compare(o Position) int {
	return strings.Compare(p.raw, o.raw)
}

func (p Position) Less(o Position) bool  { return p.raw < o.raw }
func (p Position) Equal(o Position) bool { return p.raw == o.raw }

func (p Position) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(p.raw))
	return h.Sum64()
}

func (p Position) String() string {
	return fmt.Sprintf("ShufflePosition(base64:%s)", p.EncodeBase64())
}

// Compare orders two positions, see Position.Compare.
func Compare(a, b Position) int {
	return a.Compare(b)
}
