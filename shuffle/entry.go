package shuffle

import "bytes"

// Entry is one record of a shuffle shard. Readers hand out entries sorted by
// (Key, SecondaryKey, Position).
type Entry struct {
	Key          []byte
	SecondaryKey []byte
	Value        []byte
	Position     Position
}

// CompareEntries orders entries the way the shuffle service sorts them.
func CompareEntries(a, b *Entry) int {
	if c := bytes.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	if c := bytes.Compare(a.SecondaryKey, b.SecondaryKey); c != 0 {
		return c
	}
	return a.Position.Compare(b.Position)
}
