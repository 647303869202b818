package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/events"
)

// ActivityFeed announces stored feed entries on the event bus. The entry
// itself is written in the same transaction as the loan it describes.
type ActivityFeed struct {
	publisher events.Publisher
	logger    *zap.Logger
}

func NewActivityFeed(publisher events.Publisher, logger *zap.Logger) *ActivityFeed {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &ActivityFeed{
		publisher: publisher,
		logger:    logger,
	}
}

// Publish sends activity keyed by its id. Failures are logged only; the
// stored row is the source of truth.
func (f *ActivityFeed) Publish(ctx context.Context, activity *domain.Activity) {
	if err := f.publisher.Publish(ctx, activity.ID, activity); err != nil {
		f.logger.Warn("activity publish failed",
			zap.String("activity_id", activity.ID),
			zap.Error(err),
		)
	}
}
