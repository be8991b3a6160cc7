package coder

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

const (
	MinTimestamp int64 = math.MinInt64 / 1000
	MaxTimestamp int64 = math.MaxInt64 / 1000
)

// Window is an interval of event time, in microseconds.
type Window struct {
	Start int64
	End   int64
}

var GlobalWindow = Window{Start: MinTimestamp, End: MaxTimestamp}

// WindowedValue pairs a value with its event timestamp and windows.
type WindowedValue struct {
	Value     interface{}
	Timestamp int64
	Windows   []Window
}

// ValueInGlobalWindow wraps v with the minimum timestamp in the global window.
func ValueInGlobalWindow(v interface{}) WindowedValue {
	return WindowedValue{Value: v, Timestamp: MinTimestamp, Windows: []Window{GlobalWindow}}
}

// WindowedCoder is implemented by coders that wrap values with windowing metadata.
type WindowedCoder interface {
	Coder
	ValueCoder() Coder
}

// FullWindowedValueCoder encodes the timestamp and windows before the value.
type FullWindowedValueCoder struct {
	Value Coder
}

func (c FullWindowedValueCoder) ValueCoder() Coder { return c.Value }

func (c FullWindowedValueCoder) Encode(v interface{}) ([]byte, error) {
	wv, ok := v.(WindowedValue)
	if !ok {
		return nil, typeError("windowed value coder", v)
	}
	var buf [binary.MaxVarintLen64]byte
	out := append([]byte{}, buf[:binary.PutVarint(buf[:], wv.Timestamp)]...)
	out = append(out, buf[:binary.PutUvarint(buf[:], uint64(len(wv.Windows)))]...)
	for _, w := range wv.Windows {
		out = append(out, buf[:binary.PutVarint(buf[:], w.Start)]...)
		out = append(out, buf[:binary.PutVarint(buf[:], w.End)]...)
	}
	value, err := c.Value.Encode(wv.Value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode windowed value")
	}
	return append(out, value...), nil
}

func (c FullWindowedValueCoder) Decode(b []byte) (interface{}, error) {
	ts, n := binary.Varint(b)
	if n <= 0 {
		return nil, ErrTruncated
	}
	b = b[n:]
	count, n := binary.Uvarint(b)
	if n <= 0 || count > uint64(len(b)) {
		return nil, ErrTruncated
	}
	b = b[n:]
	windows := make([]Window, count)
	for idx := range windows {
		start, n := binary.Varint(b)
		if n <= 0 {
			return nil, ErrTruncated
		}
		b = b[n:]
		end, n := binary.Varint(b)
		if n <= 0 {
			return nil, ErrTruncated
		}
		b = b[n:]
		windows[idx] = Window{Start: start, End: end}
	}
	value, err := c.Value.Decode(b)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode windowed value")
	}
	return WindowedValue{Value: value, Timestamp: ts, Windows: windows}, nil
}

// ValueOnlyWindowedValueCoder only encodes the value; decoded values are
// placed in the global window.
type ValueOnlyWindowedValueCoder struct {
	Value Coder
}

func (c ValueOnlyWindowedValueCoder) ValueCoder() Coder { return c.Value }

func (c ValueOnlyWindowedValueCoder) Encode(v interface{}) ([]byte, error) {
	wv, ok := v.(WindowedValue)
	if !ok {
		return nil, typeError("value only windowed value coder", v)
	}
	return c.Value.Encode(wv.Value)
}

func (c ValueOnlyWindowedValueCoder) Decode(b []byte) (interface{}, error) {
	v, err := c.Value.Decode(b)
	if err != nil {
		return nil, err
	}
	return ValueInGlobalWindow(v), nil
}
