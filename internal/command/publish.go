package command

import (
	"context"
	"log"

	"github.com/cfmail/console/internal/events"
)

// publish logs instead of failing: the write has already been committed.
func publish(ctx context.Context, p EventPublisher, stream, eventType string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, stream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func publishQuotaChange(ctx context.Context, p EventPublisher, userID, username, email string, before, after int, reason string) {
	publish(ctx, p, events.QuotaEventsStream, events.QuotaChanged, events.QuotaChangedEvent{
		UserID:   userID,
		Username: username,
		Email:    email,
		Before:   before,
		After:    after,
		Reason:   reason,
	})
}
