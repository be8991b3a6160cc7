package sortedshard

import (
	"context"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
	"go.uber.org/zap"
)

type reader struct {
	db       *badger.DB
	txn      *badger.Txn
	it       *badger.Iterator
	iterOpts badger.IteratorOptions
	tracker  *worker.RangeTracker
	logger   *zap.Logger
	counters worker.ReaderCounters
	mtx      sync.Mutex
	closed   bool
}

func (r *reader) isClosed() bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.closed
}

func (r *reader) Start(ctx context.Context) (*shuffle.Entry, error) {
	if r.isClosed() {
		return nil, worker.ErrReaderClosed
	}
	if err := r.tracker.MarkStarted(); err != nil {
		return nil, err
	}
	r.txn = r.db.NewTransaction(false)
	r.it = r.txn.NewIterator(r.iterOpts)
	if start := r.tracker.StartPosition(); start.IsZero() {
		r.it.Rewind()
	} else {
		r.it.Seek(start.Bytes())
	}
	return r.next(ctx)
}

func (r *reader) Advance(ctx context.Context) (*shuffle.Entry, error) {
	if r.isClosed() {
		return nil, worker.ErrReaderClosed
	}
	switch r.tracker.State() {
	case worker.StateUnstarted:
		return nil, worker.ErrNotStarted
	case worker.StateFinished:
		return nil, nil
	}
	r.it.Next()
	return r.next(ctx)
}

// next returns the entry under the iterator.
func (r *reader) next(ctx context.Context) (*shuffle.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.it.Valid() {
		r.tracker.MarkDone()
		return nil, nil
	}
	item := r.it.Item()
	pos := shuffle.FromBytes(item.Key())
	if !r.tracker.TryReturnRecordAt(pos) {
		return nil, nil
	}
	key, secondaryKey, _, err := decodeKey(item.Key())
	if err != nil {
		return nil, r.decodeError(pos, err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, r.decodeError(pos, err)
	}
	r.counters.RecordsRead.Add(1)
	r.counters.BytesRead.Add(float64(item.EstimatedSize()))
	return &shuffle.Entry{Key: key, SecondaryKey: secondaryKey, Value: value, Position: pos}, nil
}

func (r *reader) decodeError(pos shuffle.Position, err error) error {
	r.counters.DecodeErrors.Add(1)
	r.tracker.MarkDone()
	r.logger.Warn("failed to read shard entry", zap.Stringer("entry_position", pos), zap.Error(err))
	return &worker.DecodeError{Position: pos, Err: err}
}

func (r *reader) Progress() shuffle.Position {
	return r.tracker.Progress()
}

func (r *reader) RequestDynamicSplit(pos shuffle.Position) bool {
	if r.tracker.TrySplitAt(pos) {
		r.counters.SplitsAccepted.Add(1)
		r.logger.Debug("split accepted", zap.Stringer("split_position", pos))
		return true
	}
	r.counters.SplitsRejected.Add(1)
	return false
}

func (r *reader) Close() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.tracker.MarkDone()
	if r.it != nil {
		r.it.Close()
	}
	if r.txn != nil {
		r.txn.Discard()
	}
	return r.db.Close()
}
