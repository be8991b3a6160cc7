package stream

import (
	"context"
	"time"

	"github.com/vx-labs/shuffle/grouping"
	"github.com/vx-labs/shuffle/worker/stats"
	"go.uber.org/zap"
)

func PerformanceLogger(name string, logger *zap.Logger, processor Processor) Processor {
	return func(ctx context.Context, group *grouping.Group) error {
		start := time.Now()
		err := processor(ctx, group)
		elapsed := stats.MilisecondsElapsed(start)
		l := logger.With(zap.Stringer("group_position", group.Position),
			zap.Duration("group_processing_time", time.Since(start)))
		if err == nil {
			stats.HistogramVec("groupProcessingTime").WithLabelValues(name, "success").Observe(elapsed)
			l.Debug("group processed")
		} else {
			stats.HistogramVec("groupProcessingTime").WithLabelValues(name, "failure").Observe(elapsed)
			l.Error("group processing failed", zap.Error(err))
		}
		return err
	}
}
