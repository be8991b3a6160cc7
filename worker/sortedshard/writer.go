package sortedshard

import (
	"context"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
	"go.uber.org/zap"
)

var (
	ErrShardNotEmpty = errors.New("shard already contains entries")
	ErrWriterClosed  = errors.New("writer closed")
)

// Writer fills a sorted shard. Entries may be appended in any order; the
// storage keeps them sorted. A shard has a single writer.
type Writer struct {
	mtx  sync.Mutex
	db   *badger.DB
	txn  *badger.Txn
	seq  uint64
	done bool
}

func NewWriter(ctx context.Context, datadir string) (*Writer, error) {
	opts := badger.DefaultOptions(datadir).
		WithLogger(newBadgerLogger(worker.L(ctx)))
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open shard")
	}
	empty := true
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{})
		defer it.Close()
		it.Rewind()
		empty = !it.Valid()
		return nil
	})
	if err == nil && !empty {
		err = ErrShardNotEmpty
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	worker.L(ctx).Debug("opened shard writer", zap.String("shard_locator", datadir))
	return &Writer{db: db, txn: db.NewTransaction(true)}, nil
}

// Append stores an entry and returns its position.
func (w *Writer) Append(key, secondaryKey, value []byte) (shuffle.Position, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if w.done {
		return shuffle.Position{}, ErrWriterClosed
	}
	k := encodeKey(key, secondaryKey, w.seq)
	err := w.txn.Set(k, value)
	if err == badger.ErrTxnTooBig {
		if err = w.txn.Commit(); err != nil {
			return shuffle.Position{}, err
		}
		w.txn = w.db.NewTransaction(true)
		err = w.txn.Set(k, value)
	}
	if err != nil {
		return shuffle.Position{}, err
	}
	w.seq++
	return shuffle.FromBytes(k), nil
}

// Close commits pending entries and closes the shard.
func (w *Writer) Close() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if w.done {
		return nil
	}
	w.done = true
	err := w.txn.Commit()
	if closeErr := w.db.Close(); err == nil {
		err = closeErr
	}
	return err
}
