package sortedshard

import (
	"encoding/binary"
	"errors"

	"github.com/vx-labs/shuffle/shuffle"
)

var ErrInvalidKey = errors.New("invalid shard key")

const sequenceSize = 8

// encodeKey builds the storage key of an entry. Keys sort by primary key, then
// secondary key, then sequence; the storage key is the entry position.
func encodeKey(key, secondaryKey []byte, seq uint64) []byte {
	out := make([]byte, 0, len(key)+len(secondaryKey)+4+sequenceSize)
	out = shuffle.AppendOrderedBytes(out, key)
	out = shuffle.AppendOrderedBytes(out, secondaryKey)
	var buf [sequenceSize]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(out, buf[:]...)
}

func decodeKey(b []byte) (key, secondaryKey []byte, seq uint64, err error) {
	key, b, err = shuffle.ReadOrderedBytes(b)
	if err != nil {
		return nil, nil, 0, err
	}
	secondaryKey, b, err = shuffle.ReadOrderedBytes(b)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(b) != sequenceSize {
		return nil, nil, 0, ErrInvalidKey
	}
	return key, secondaryKey, binary.BigEndian.Uint64(b), nil
}
