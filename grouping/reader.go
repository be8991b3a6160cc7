package grouping

import (
	"bytes"
	"context"
	"sync"

	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
	"go.uber.org/zap"
)

type counters struct {
	groupsRead     worker.Counter
	valuesRead     worker.Counter
	decodeErrors   worker.Counter
	splitsAccepted worker.Counter
	splitsRejected worker.Counter
}

// Reader merges sorted readers and hands out one Group per key.
//
// Splits and resumption work on group boundaries: a group belongs to the
// range holding its start position, and is always read in full.
//
// Start, Advance and group iteration must happen on one goroutine. Progress
// and RequestDynamicSplit may be called from another one.
type Reader struct {
	readers    []worker.Reader
	keyCoder   coder.Coder
	valueCoder coder.Coder
	opts       Options
	counters   counters
	logger     *zap.Logger

	heap       mergeHeap
	ctx        context.Context
	current    *Group
	generation uint64
	err        error

	// mtx guards the fields below.
	mtx        sync.Mutex
	state      worker.State
	groupStart shuffle.Position
	stop       shuffle.Position
	exhausted  []bool
}

// New returns a grouping reader over readers. Keys are decoded with keyCoder
// and values with valueCoder. The grouping reader owns readers.
func New(ctx context.Context, readers []worker.Reader, keyCoder, valueCoder coder.Coder, opts ...Option) *Reader {
	config := Options{}
	for _, opt := range opts {
		opt(&config)
	}
	return &Reader{
		readers:    readers,
		keyCoder:   keyCoder,
		valueCoder: valueCoder,
		opts:       config,
		logger:     worker.L(ctx),
		exhausted:  make([]bool, len(readers)),
		counters: counters{
			groupsRead:     worker.CounterFor(config.Counters, worker.CounterGroupsRead),
			valuesRead:     worker.CounterFor(config.Counters, worker.CounterValuesRead),
			decodeErrors:   worker.CounterFor(config.Counters, worker.CounterDecodeErrors),
			splitsAccepted: worker.CounterFor(config.Counters, worker.CounterSplitsAccepted),
			splitsRejected: worker.CounterFor(config.Counters, worker.CounterSplitsRejected),
		},
	}
}

// Start starts every reader and returns the first group, or nil when there is
// none.
func (r *Reader) Start(ctx context.Context) (*Group, error) {
	r.mtx.Lock()
	if r.state != worker.StateUnstarted {
		r.mtx.Unlock()
		return nil, worker.ErrAlreadyStarted
	}
	r.state = worker.StateActive
	r.mtx.Unlock()
	r.ctx = ctx
	for idx, reader := range r.readers {
		entry, err := reader.Start(ctx)
		if err != nil {
			return nil, r.fail(err)
		}
		r.pushHead(idx, entry)
	}
	if !r.opts.FromPosition.IsZero() {
		r.logger.Debug("resuming grouping", zap.Stringer("resume_position", r.opts.FromPosition))
	}
	return r.openGroup()
}

// Advance skips what is left of the current group and returns the next one,
// or nil at the end.
func (r *Reader) Advance(ctx context.Context) (*Group, error) {
	if r.err != nil {
		return nil, r.err
	}
	switch r.State() {
	case worker.StateUnstarted:
		return nil, worker.ErrNotStarted
	case worker.StateFinished:
		return nil, nil
	}
	r.ctx = ctx
	if r.current != nil {
		if err := r.skipGroup(r.current.RawKey); err != nil {
			return nil, r.fail(err)
		}
	}
	return r.openGroup()
}

func (r *Reader) State() worker.State {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.state
}

// Progress returns the start position of the current group.
func (r *Reader) Progress() shuffle.Position {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.groupStart
}

// RequestDynamicSplit asks the reader not to open groups starting at or after
// pos. The group holding pos, when it started before pos, is still read in
// full, so the remainder is the groups a reader resumed from pos returns.
// Underlying readers are left untouched since their stop would land inside a
// group.
func (r *Reader) RequestDynamicSplit(pos shuffle.Position) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.state != worker.StateActive || pos.IsZero() || pos.Compare(r.groupStart) <= 0 {
		r.counters.splitsRejected.Add(1)
		return false
	}
	if !r.stop.IsZero() && pos.Compare(r.stop) >= 0 {
		r.counters.splitsRejected.Add(1)
		return false
	}
	if r.drained() {
		r.counters.splitsRejected.Add(1)
		r.logger.Debug("split rejected: every reader is exhausted", zap.Stringer("split_position", pos))
		return false
	}
	r.stop = pos
	r.counters.splitsAccepted.Add(1)
	r.logger.Debug("split accepted", zap.Stringer("split_position", pos))
	return true
}

// drained reports whether every underlying reader returned its last entry.
// It must be called with mtx held.
func (r *Reader) drained() bool {
	for _, exhausted := range r.exhausted {
		if !exhausted {
			return false
		}
	}
	return true
}

// Close closes every reader. Pending groups become invalid.
func (r *Reader) Close() error {
	r.mtx.Lock()
	r.state = worker.StateFinished
	r.mtx.Unlock()
	r.generation++
	var err error
	for _, reader := range r.readers {
		if closeErr := reader.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

func (r *Reader) fail(err error) error {
	if r.err == nil {
		r.err = err
		r.logger.Warn("grouping failed", zap.Error(err))
	}
	r.generation++
	r.mtx.Lock()
	r.state = worker.StateFinished
	r.mtx.Unlock()
	return r.err
}

func (r *Reader) pushHead(idx int, entry *shuffle.Entry) {
	if entry == nil {
		r.mtx.Lock()
		r.exhausted[idx] = true
		r.mtx.Unlock()
		return
	}
	r.heap.push(head{entry: entry, reader: idx})
}

// nextInGroup pops the next entry of the current group, or returns nil once
// the group is exhausted.
func (r *Reader) nextInGroup() (*shuffle.Entry, error) {
	if r.current == nil {
		return nil, nil
	}
	return r.popKey(r.current.RawKey)
}

// popKey pops the head of the merge if it holds key.
func (r *Reader) popKey(key []byte) (*shuffle.Entry, error) {
	top, ok := r.heap.peek()
	if !ok || !bytes.Equal(top.entry.Key, key) {
		return nil, nil
	}
	r.heap.pop()
	next, err := r.readers[top.reader].Advance(r.ctx)
	if err != nil {
		return nil, err
	}
	r.pushHead(top.reader, next)
	return top.entry, nil
}

// skipGroup drops what is left of the entries holding key.
func (r *Reader) skipGroup(key []byte) error {
	for {
		entry, err := r.popKey(key)
		if err != nil || entry == nil {
			return err
		}
	}
}

// openGroup opens the group starting at the head of the merge. Groups starting
// before the resume position are skipped as a whole.
func (r *Reader) openGroup() (*Group, error) {
	r.generation++
	r.current = nil
	top, ok := r.heap.peek()
	for ok && top.entry.Position.Less(r.opts.FromPosition) {
		if err := r.skipGroup(top.entry.Key); err != nil {
			return nil, r.fail(err)
		}
		top, ok = r.heap.peek()
	}
	r.mtx.Lock()
	if !ok || (!r.stop.IsZero() && top.entry.Position.Compare(r.stop) >= 0) {
		r.state = worker.StateFinished
		r.mtx.Unlock()
		return nil, nil
	}
	r.groupStart = top.entry.Position
	r.mtx.Unlock()

	key, err := r.keyCoder.Decode(top.entry.Key)
	if err != nil {
		r.counters.decodeErrors.Add(1)
		return nil, r.fail(&worker.DecodeError{Position: top.entry.Position, Err: err})
	}
	r.counters.groupsRead.Add(1)
	r.current = &Group{
		Key:      key,
		RawKey:   top.entry.Key,
		Position: top.entry.Position,
	}
	r.current.Values = &Values{r: r, generation: r.generation}
	return r.current, nil
}
