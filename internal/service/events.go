package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/exam-scheduler/internal/queue"
)

const publishTimeout = 3 * time.Second

// publish sends ev after the owning transaction has committed.  Delivery
// is best effort: a failure is logged and never reaches the caller.
func publish(ctx context.Context, p queue.Publisher, logger *zap.Logger, ev queue.ScheduleEvent) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		logger.Warn("Schedule event publish failed", zap.String("type", ev.Type), zap.String("event_id", ev.ID), zap.Error(err))
	}
}
