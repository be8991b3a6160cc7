package grouping

import (
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
)

type Options struct {
	// FromPosition skips the groups starting before it. Underlying readers
	// must not be bounded past it, or the groups straddling it would lose
	// their head.
	FromPosition shuffle.Position
	Counters     worker.CounterSet
}

type Option func(*Options)

func FromPosition(p shuffle.Position) Option {
	return func(o *Options) { o.FromPosition = p }
}
func WithCounters(set worker.CounterSet) Option {
	return func(o *Options) { o.Counters = set }
}
