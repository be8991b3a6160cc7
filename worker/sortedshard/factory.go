package sortedshard

import (
	"context"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/worker"
	"go.uber.org/zap"
)

// Format is the descriptor format served by this backend.
const Format = "shuffle"

// Factory opens sorted shards read-only, so that several readers can share a
// shard.
type Factory struct{}

func Register(r *worker.Registry) error {
	return r.Register(Format, Factory{})
}

func (Factory) Create(ctx context.Context, d worker.ShardDescriptor, c coder.Coder, opts worker.Options, counters worker.CounterSet, operationName string) (worker.Reader, error) {
	if _, ok := d.StartOffset(); ok {
		return nil, &worker.InvalidDescriptorError{Field: worker.PropertyStartOffset, Reason: "sorted shards are bounded by positions only"}
	}
	if _, ok := d.EndOffset(); ok {
		return nil, &worker.InvalidDescriptorError{Field: worker.PropertyEndOffset, Reason: "sorted shards are bounded by positions only"}
	}
	if _, err := os.Stat(d.Locator()); err != nil {
		return nil, errors.Wrapf(err, "failed to open shard %s", d.Locator())
	}
	badgerOpts := badger.DefaultOptions(d.Locator()).
		WithReadOnly(true).
		WithLogger(newBadgerLogger(worker.L(ctx)))
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open shard %s", d.Locator())
	}
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = opts.PrefetchValues
	if opts.PrefetchSize > 0 {
		iterOpts.PrefetchSize = opts.PrefetchSize
	}
	worker.L(ctx).Debug("opened sorted shard",
		zap.Stringer("start_position", d.StartPosition()), zap.Stringer("end_position", d.EndPosition()))
	return &reader{
		db:       db,
		iterOpts: iterOpts,
		tracker:  worker.NewRangeTracker(d.StartPosition(), d.EndPosition()),
		logger:   worker.L(ctx),
		counters: worker.NewReaderCounters(counters),
	}, nil
}
