package stream

import (
	"context"

	"github.com/vx-labs/shuffle/grouping"
	"go.uber.org/zap"
)

type consumer struct {
	opts ConsumerOpts
}

// ConsumerOpts describes group consumption preferences.
type ConsumerOpts struct {
	Name string
	// MaxGroupCount stops consumption after this many groups. Negative values
	// mean no limit.
	MaxGroupCount int64
	Middleware    []func(Processor, ConsumerOpts) Processor
}

type consumerOpts func(*ConsumerOpts)

func WithMaxGroupCount(o int64) consumerOpts {
	return func(c *ConsumerOpts) { c.MaxGroupCount = o }
}
func WithName(v string) consumerOpts {
	return func(c *ConsumerOpts) { c.Name = v }
}
func WithPerformanceLogging(logger *zap.Logger) consumerOpts {
	return func(c *ConsumerOpts) {
		c.Middleware = append(c.Middleware, func(p Processor, opts ConsumerOpts) Processor {
			l := logger
			if opts.Name != "" {
				l = l.With(zap.String("consumer_name", opts.Name))
			}
			return PerformanceLogger(opts.Name, l, p)
		})
	}
}

type Consumer interface {
	Consume(ctx context.Context, r *grouping.Reader, processor Processor) error
}

func NewConsumer(opts ...consumerOpts) Consumer {
	config := ConsumerOpts{
		MaxGroupCount: -1,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return consumer{opts: config}
}

func (c consumer) Consume(ctx context.Context, r *grouping.Reader, processor Processor) error {
	return consume(ctx, r, c.opts, processor)
}
