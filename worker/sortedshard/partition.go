package sortedshard

import (
	"context"
	"fmt"
	"hash/fnv"
	"path"

	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/shuffle"
)

// PartitionFor returns the partition holding key.
func PartitionFor(key []byte, partitionCount int) int {
	hash := fnv.New32()
	hash.Write(key)
	return int(hash.Sum32() % uint32(partitionCount))
}

// PartitionedWriter spreads entries over several shards, keeping all entries
// of a key in the same shard.
type PartitionedWriter struct {
	dirs    []string
	writers []*Writer
}

func NewPartitionedWriter(ctx context.Context, datadir string, partitionCount int) (*PartitionedWriter, error) {
	if partitionCount <= 0 {
		return nil, errors.New("partition count must be positive")
	}
	p := &PartitionedWriter{}
	for idx := 0; idx < partitionCount; idx++ {
		dir := path.Join(datadir, fmt.Sprintf("%d", idx))
		w, err := NewWriter(ctx, dir)
		if err != nil {
			p.Close()
			return nil, errors.Wrapf(err, "failed to open partition %d", idx)
		}
		p.dirs = append(p.dirs, dir)
		p.writers = append(p.writers, w)
	}
	return p, nil
}

// Append stores an entry in its partition.
func (p *PartitionedWriter) Append(key, secondaryKey, value []byte) (int, shuffle.Position, error) {
	idx := PartitionFor(key, len(p.writers))
	pos, err := p.writers[idx].Append(key, secondaryKey, value)
	return idx, pos, err
}

// ShardDirs returns the locator of every partition.
func (p *PartitionedWriter) ShardDirs() []string {
	return p.dirs
}

func (p *PartitionedWriter) Close() error {
	var err error
	for _, w := range p.writers {
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
