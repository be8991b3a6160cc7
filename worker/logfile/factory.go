package logfile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vx-labs/shuffle/coder"
	"github.com/vx-labs/shuffle/commitlog"
	"github.com/vx-labs/shuffle/shuffle"
	"github.com/vx-labs/shuffle/worker"
	"go.uber.org/zap"
)

// Format is the descriptor format served by this backend.
const Format = "commitlog"

// Factory opens commitlog runs. Windowed coders select the windowed variant.
type Factory struct{}

func Register(r *worker.Registry) error {
	return r.Register(Format, Factory{})
}

func (Factory) Create(ctx context.Context, d worker.ShardDescriptor, c coder.Coder, opts worker.Options, counters worker.CounterSet, operationName string) (worker.Reader, error) {
	if c == nil {
		return nil, &worker.InvalidDescriptorError{Reason: "missing coder"}
	}
	log, err := commitlog.OpenReadOnly(d.Locator())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", d.Locator())
	}
	var format recordFormat
	variant := "bytes"
	if windowed, ok := c.(coder.WindowedCoder); ok {
		format = windowedFormat(windowed)
		variant = "windowed"
	} else {
		format = byteFormat(c)
	}
	start, startPos, stopPos, err := bounds(log, format, d)
	if err != nil {
		log.Close()
		return nil, err
	}
	ctx = worker.AddFields(ctx, zap.String("shard_variant", variant))
	worker.L(ctx).Debug("opened commitlog run", zap.Uint64("start_offset", start), zap.Uint64("log_offset", log.Offset()))
	return newRecordReader(ctx, log, start, startPos, stopPos, counters, format), nil
}

// bounds merges the offset and position bounds of d. Offsets are turned into
// the positions of the records they designate, and the tighter bound wins.
func bounds(log commitlog.CommitLog, format recordFormat, d worker.ShardDescriptor) (uint64, shuffle.Position, shuffle.Position, error) {
	var start uint64
	startPos, stopPos := d.StartPosition(), d.EndPosition()
	end := log.Offset()
	cursor := log.Reader()
	defer cursor.Close()
	if offset, ok := d.StartOffset(); ok {
		start = uint64(offset)
		if start < end {
			pos, err := positionAt(cursor, format, start)
			if err != nil {
				return 0, startPos, stopPos, errors.Wrap(err, "failed to resolve start offset")
			}
			if pos.Compare(startPos) > 0 {
				startPos = pos
			}
		}
	}
	if offset, ok := d.EndOffset(); ok && uint64(offset) < end {
		pos, err := positionAt(cursor, format, uint64(offset))
		if err != nil {
			return 0, startPos, stopPos, errors.Wrap(err, "failed to resolve end offset")
		}
		if stopPos.IsZero() || pos.Less(stopPos) {
			stopPos = pos
		}
	}
	return start, startPos, stopPos, nil
}
