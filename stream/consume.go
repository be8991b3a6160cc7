package stream

import (
	"context"

	"github.com/vx-labs/shuffle/grouping"
)

// Processor is a function that will process one group
type Processor func(context.Context, *grouping.Group) error

// Consume drives r on the calling goroutine, and calls processor on each group
func Consume(ctx context.Context, r *grouping.Reader, processor Processor, opts ...consumerOpts) error {
	return NewConsumer(opts...).Consume(ctx, r, processor)
}

func consume(ctx context.Context, r *grouping.Reader, opts ConsumerOpts, processor Processor) error {
	for _, middleware := range opts.Middleware {
		processor = middleware(processor, opts)
	}
	var count int64
	group, err := r.Start(ctx)
	for ; group != nil && err == nil; group, err = r.Advance(ctx) {
		if opts.MaxGroupCount >= 0 && count >= opts.MaxGroupCount {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := processor(ctx, group); err != nil {
			return err
		}
		count++
	}
	return err
}
