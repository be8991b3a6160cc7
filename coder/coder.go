// Package coder holds the serialization strategies applied to shuffle keys and values.
package coder

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
)

var (
	ErrUnexpectedType = errors.New("unexpected value type")
	ErrInvalidUTF8    = errors.New("invalid utf-8 string")
	ErrTrailingBytes  = errors.New("trailing bytes after encoded value")
	ErrTruncated      = errors.New("truncated encoded value")
)

// Coder encodes and decodes values to and from bytes.
type Coder interface {
	Encode(v interface{}) ([]byte, error)
	Decode(b []byte) (interface{}, error)
}

func typeError(coder string, v interface{}) error {
	return errors.Wrapf(ErrUnexpectedType, "%s cannot encode %T", coder, v)
}

// BytesCoder passes byte slices through.
type BytesCoder struct{}

func (BytesCoder) Encode(v interface{}) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, typeError("bytes coder", v)
	}
	return b, nil
}
func (BytesCoder) Decode(b []byte) (interface{}, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// StringUTF8Coder encodes strings as their UTF-8 bytes and refuses invalid input on decode.
type StringUTF8Coder struct{}

func (StringUTF8Coder) Encode(v interface{}) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, typeError("string coder", v)
	}
	return []byte(s), nil
}
func (StringUTF8Coder) Decode(b []byte) (interface{}, error) {
	if !utf8.Valid(b) {
		return nil, ErrInvalidUTF8
	}
	return string(b), nil
}

// VarIntCoder encodes int64 values as zig-zag varints.
type VarIntCoder struct{}

func (VarIntCoder) Encode(v interface{}) ([]byte, error) {
	var i int64
	switch n := v.(type) {
	case int64:
		i = n
	case int:
		i = int64(n)
	case int32:
		i = int64(n)
	default:
		return nil, typeError("varint coder", v)
	}
	buf := make([]byte, binary.MaxVarintLen64)
	return buf[:binary.PutVarint(buf, i)], nil
}
func (VarIntCoder) Decode(b []byte) (interface{}, error) {
	i, n := binary.Varint(b)
	if n <= 0 {
		return nil, ErrTruncated
	}
	if n != len(b) {
		return nil, ErrTrailingBytes
	}
	return i, nil
}

// ProtoCoder encodes protobuf messages. New must return an empty message of
// the decoded type.
type ProtoCoder struct {
	New func() proto.Message
}

func (c ProtoCoder) Encode(v interface{}) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, typeError("proto coder", v)
	}
	return proto.Marshal(m)
}
func (c ProtoCoder) Decode(b []byte) (interface{}, error) {
	m := c.New()
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal protobuf message")
	}
	return m, nil
}

// KV is a key/value pair.
type KV struct {
	Key   interface{}
	Value interface{}
}

func (kv KV) String() string { return fmt.Sprintf("KV(%v, %v)", kv.Key, kv.Value) }

// KVCoder encodes a KV as a length-prefixed key followed by the value.
type KVCoder struct {
	Key   Coder
	Value Coder
}

func (c KVCoder) Encode(v interface{}) ([]byte, error) {
	kv, ok := v.(KV)
	if !ok {
		return nil, typeError("kv coder", v)
	}
	k, err := c.Key.Encode(kv.Key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode key")
	}
	val, err := c.Value.Encode(kv.Value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode value")
	}
	return append(appendLengthPrefixed(nil, k), val...), nil
}
func (c KVCoder) Decode(b []byte) (interface{}, error) {
	k, rest, err := readLengthPrefixed(b)
	if err != nil {
		return nil, err
	}
	key, err := c.Key.Decode(k)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode key")
	}
	value, err := c.Value.Decode(rest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode value")
	}
	return KV{Key: key, Value: value}, nil
}

func appendLengthPrefixed(dst, b []byte) []byte {
	var buf [binary.MaxVarintLen64]byte
	dst = append(dst, buf[:binary.PutUvarint(buf[:], uint64(len(b)))]...)
	return append(dst, b...)
}

func readLengthPrefixed(b []byte) ([]byte, []byte, error) {
	size, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n) < size {
		return nil, nil, ErrTruncated
	}
	return b[n : n+int(size)], b[n+int(size):], nil
}
