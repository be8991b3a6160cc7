package worker

import (
	"sync"

	"github.com/vx-labs/shuffle/shuffle"
)

type State int

const (
	StateUnstarted State = iota
	StateActive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// RangeTracker keeps the state and position bounds of a reader. Start is
// inclusive, stop is exclusive; a zero position means unbounded. Its lock only
// guards these fields.
type RangeTracker struct {
	mtx   sync.Mutex
	start shuffle.Position
	stop  shuffle.Position
	last  shuffle.Position
	state State
}

func NewRangeTracker(start, stop shuffle.Position) *RangeTracker {
	return &RangeTracker{start: start, stop: stop}
}

func (t *RangeTracker) StartPosition() shuffle.Position {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.start
}

func (t *RangeTracker) StopPosition() shuffle.Position {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.stop
}

func (t *RangeTracker) State() State {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.state
}

// MarkStarted moves an unstarted tracker to the active state.
func (t *RangeTracker) MarkStarted() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.state != StateUnstarted {
		return ErrAlreadyStarted
	}
	t.state = StateActive
	return nil
}

func (t *RangeTracker) MarkDone() {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.state = StateFinished
}

// TryReturnRecordAt records that the entry at pos is about to be returned. It
// returns false, and finishes the tracker, when pos is at or after the stop
// position.
func (t *RangeTracker) TryReturnRecordAt(pos shuffle.Position) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.state != StateActive {
		return false
	}
	if !t.stop.IsZero() && pos.Compare(t.stop) >= 0 {
		t.state = StateFinished
		return false
	}
	t.last = pos
	return true
}

func (t *RangeTracker) Progress() shuffle.Position {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.last
}

// TrySplitAt narrows the range so that it stops before pos. Splits are only
// accepted while active, strictly after the last returned position and inside
// the current range.
func (t *RangeTracker) TrySplitAt(pos shuffle.Position) bool {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.state != StateActive || pos.IsZero() {
		return false
	}
	if pos.Compare(t.last) <= 0 || pos.Compare(t.start) <= 0 {
		return false
	}
	if !t.stop.IsZero() && pos.Compare(t.stop) >= 0 {
		return false
	}
	t.stop = pos
	return true
}
