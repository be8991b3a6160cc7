package logfile

import (
	"encoding/binary"
	"errors"

	"github.com/vx-labs/shuffle/shuffle"
)

var (
	ErrInvalidFrame    = errors.New("invalid record frame")
	ErrInvalidPosition = errors.New("invalid record position")
)

var encoding = binary.BigEndian

const offsetSize = 8

// EncodeFrame serializes a keyed record as stored by the byte variant.
func EncodeFrame(key, secondaryKey, value []byte) []byte {
	var buf [binary.MaxVarintLen64]byte
	out := make([]byte, 0, len(key)+len(secondaryKey)+len(value)+2*binary.MaxVarintLen64)
	out = append(out, buf[:binary.PutUvarint(buf[:], uint64(len(key)))]...)
	out = append(out, key...)
	out = append(out, buf[:binary.PutUvarint(buf[:], uint64(len(secondaryKey)))]...)
	out = append(out, secondaryKey...)
	return append(out, value...)
}

// DecodeFrame splits a record frame. Returned slices alias b.
func DecodeFrame(b []byte) (key, secondaryKey, value []byte, err error) {
	key, b, err = readField(b)
	if err != nil {
		return nil, nil, nil, err
	}
	secondaryKey, b, err = readField(b)
	if err != nil {
		return nil, nil, nil, err
	}
	return key, secondaryKey, b, nil
}

func readField(b []byte) ([]byte, []byte, error) {
	size, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n) < size {
		return nil, nil, ErrInvalidFrame
	}
	return b[n : n+int(size)], b[n+int(size):], nil
}

// RecordPosition returns the shuffle position of a record. Positions sort by
// key, then secondary key, then record offset, so that positions of different
// runs compare in key order.
func RecordPosition(key, secondaryKey []byte, offset uint64) shuffle.Position {
	out := make([]byte, 0, len(key)+len(secondaryKey)+4+offsetSize)
	out = shuffle.AppendOrderedBytes(out, key)
	out = shuffle.AppendOrderedBytes(out, secondaryKey)
	var buf [offsetSize]byte
	encoding.PutUint64(buf[:], offset)
	return shuffle.FromBytes(append(out, buf[:]...))
}

// ParsePosition is the inverse of RecordPosition.
func ParsePosition(p shuffle.Position) (key, secondaryKey []byte, offset uint64, err error) {
	b := p.Bytes()
	key, b, err = shuffle.ReadOrderedBytes(b)
	if err != nil {
		return nil, nil, 0, ErrInvalidPosition
	}
	secondaryKey, b, err = shuffle.ReadOrderedBytes(b)
	if err != nil || len(b) != offsetSize {
		return nil, nil, 0, ErrInvalidPosition
	}
	return key, secondaryKey, encoding.Uint64(b), nil
}

// PositionOffset returns the record offset held by a position built by
// RecordPosition.
func PositionOffset(p shuffle.Position) (uint64, error) {
	_, _, offset, err := ParsePosition(p)
	return offset, err
}
