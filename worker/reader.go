package worker

import (
	"context"
	"io"

	"github.com/vx-labs/shuffle/shuffle"
)

// Reader iterates over the entries of one shard, in position order.
//
// Start and Advance must be called from a single goroutine. Progress and
// RequestDynamicSplit may be called concurrently from another goroutine.
type Reader interface {
	io.Closer
	// Start begins iteration and returns the first entry, or nil if the range
	// is empty.
	Start(ctx context.Context) (*shuffle.Entry, error)
	// Advance returns the next entry, or nil at the end of the range.
	Advance(ctx context.Context) (*shuffle.Entry, error)
	// Progress returns the position of the last returned entry.
	Progress() shuffle.Position
	// RequestDynamicSplit asks the reader to stop before the first record
	// whose position is at or after pos. It reports whether the split was
	// accepted.
	RequestDynamicSplit(pos shuffle.Position) bool
}
