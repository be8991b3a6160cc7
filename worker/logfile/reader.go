package logfile

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/commitlog"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
	"go.uber.org/zap"
)

// recordFormat describes how payloads of a run are laid out. split extracts
// the keys of a record, decode turns its stored value into the emitted one.
type recordFormat struct {
	split  func(payload []byte) (key, secondaryKey, value []byte, err error)
	decode func(value []byte) ([]byte, error)
}

func (f recordFormat) position(record commitlog.Entry) (shuffle.Position, error) {
	key, secondaryKey, _, err := f.split(record.Payload())
	if err != nil {
		return shuffle.Position{}, err
	}
	return RecordPosition(key, secondaryKey, record.Offset()), nil
}

// positionAt reads the position of the record at offset.
func positionAt(cursor commitlog.Cursor, format recordFormat, offset uint64) (shuffle.Position, error) {
	if _, err := cursor.Seek(int64(offset), io.SeekStart); err != nil {
		return shuffle.Position{}, err
	}
	record, err := cursor.Decode()
	if err != nil {
		return shuffle.Position{}, err
	}
	pos, err := format.position(record)
	if err != nil {
		return shuffle.Position{}, &worker.DecodeError{Position: RecordPosition(nil, nil, offset), Err: err}
	}
	return pos, nil
}

// recordReader reads a range of records of a commitlog.
type recordReader struct {
	log      commitlog.CommitLog
	cursor   commitlog.Cursor
	tracker  *worker.RangeTracker
	start    uint64
	format   recordFormat
	logger   *zap.Logger
	counters worker.ReaderCounters
	mtx      sync.Mutex
	closed   bool
}

func newRecordReader(ctx context.Context, log commitlog.CommitLog, start uint64, startPos, stopPos shuffle.Position, counters worker.CounterSet, format recordFormat) *recordReader {
	return &recordReader{
		log:      log,
		start:    start,
		tracker:  worker.NewRangeTracker(startPos, stopPos),
		format:   format,
		logger:   worker.L(ctx),
		counters: worker.NewReaderCounters(counters),
	}
}

func (r *recordReader) Start(ctx context.Context) (*shuffle.Entry, error) {
	r.mtx.Lock()
	closed := r.closed
	r.mtx.Unlock()
	if closed {
		return nil, worker.ErrReaderClosed
	}
	if err := r.tracker.MarkStarted(); err != nil {
		return nil, err
	}
	r.cursor = r.log.Reader()
	offset, err := r.firstOffset()
	if err != nil {
		r.tracker.MarkDone()
		return nil, err
	}
	if _, err := r.cursor.Seek(int64(offset), io.SeekStart); err != nil {
		r.tracker.MarkDone()
		return nil, errors.Wrap(err, "failed to seek to start offset")
	}
	return r.next(ctx)
}

// firstOffset returns the offset of the first record positioned at or after
// the start position. Runs are sorted, so positions grow with offsets.
func (r *recordReader) firstOffset() (uint64, error) {
	lo, hi := r.start, r.log.Offset()
	target := r.tracker.StartPosition()
	if target.IsZero() {
		return lo, nil
	}
	for lo < hi {
		mid := lo + (hi-lo)/2
		pos, err := positionAt(r.cursor, r.format, mid)
		if err != nil {
			return 0, errors.Wrap(err, "failed to seek to start position")
		}
		if pos.Less(target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func (r *recordReader) Advance(ctx context.Context) (*shuffle.Entry, error) {
	r.mtx.Lock()
	closed := r.closed
	r.mtx.Unlock()
	if closed {
		return nil, worker.ErrReaderClosed
	}
	switch r.tracker.State() {
	case worker.StateUnstarted:
		return nil, worker.ErrNotStarted
	case worker.StateFinished:
		return nil, nil
	}
	return r.next(ctx)
}

func (r *recordReader) next(ctx context.Context) (*shuffle.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, err := r.cursor.Decode()
	if err == io.EOF {
		r.tracker.MarkDone()
		return nil, nil
	}
	if err != nil {
		r.tracker.MarkDone()
		return nil, err
	}
	key, secondaryKey, value, err := r.format.split(record.Payload())
	if err != nil {
		return nil, r.decodeFailure(RecordPosition(nil, nil, record.Offset()), record, err)
	}
	pos := RecordPosition(key, secondaryKey, record.Offset())
	if !r.tracker.TryReturnRecordAt(pos) {
		return nil, nil
	}
	value, err = r.format.decode(value)
	if err != nil {
		return nil, r.decodeFailure(pos, record, err)
	}
	r.counters.RecordsRead.Add(1)
	r.counters.BytesRead.Add(float64(record.Size()))
	return &shuffle.Entry{Key: key, SecondaryKey: secondaryKey, Value: value, Position: pos}, nil
}

func (r *recordReader) decodeFailure(pos shuffle.Position, record commitlog.Entry, err error) error {
	r.counters.DecodeErrors.Add(1)
	r.tracker.MarkDone()
	r.logger.Warn("failed to decode record", zap.Uint64("record_offset", record.Offset()), zap.Error(err))
	return &worker.DecodeError{Position: pos, Err: err}
}

func (r *recordReader) Progress() shuffle.Position {
	return r.tracker.Progress()
}

func (r *recordReader) RequestDynamicSplit(pos shuffle.Position) bool {
	if r.tracker.TrySplitAt(pos) {
		r.counters.SplitsAccepted.Add(1)
		r.logger.Debug("split accepted", zap.Stringer("split_position", pos))
		return true
	}
	r.counters.SplitsRejected.Add(1)
	return false
}

func (r *recordReader) Close() error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.tracker.MarkDone()
	var err error
	if r.cursor != nil {
		err = r.cursor.Close()
	}
	if closeErr := r.log.Close(); err == nil {
		err = closeErr
	}
	return err
}

// byteFormat reads framed records and checks that values decode with c.
func byteFormat(c coder.Coder) recordFormat {
	return recordFormat{
		split: DecodeFrame,
		decode: func(value []byte) ([]byte, error) {
			if _, err := c.Decode(value); err != nil {
				return nil, err
			}
			return value, nil
		},
	}
}

// windowedFormat reads bare values encoded with the inner value coder, and
// re-encodes them in the global window with the windowed coder.
//
// Bare records carry no key: every entry has an empty key and secondary
// key, and positions only order records by offset. Grouping such a run yields
// a single group holding every value.
func windowedFormat(c coder.WindowedCoder) recordFormat {
	inner := c.ValueCoder()
	return recordFormat{
		split: func(payload []byte) ([]byte, []byte, []byte, error) {
			return nil, nil, payload, nil
		},
		decode: func(payload []byte) ([]byte, error) {
			v, err := inner.Decode(payload)
			if err != nil {
				return nil, err
			}
			return c.Encode(coder.ValueInGlobalWindow(v))
		},
	}
}
