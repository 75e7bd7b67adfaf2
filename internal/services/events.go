package services

import (
	"context"
	"log/slog"

	"spendsmart/internal/amqp"
)

// notifier publishes ledger events without ever failing the caller.
type notifier struct {
	pub amqp.Publisher
}

func newNotifier(pub amqp.Publisher) notifier {
	if pub == nil {
		pub = amqp.NopPublisher{}
	}
	return notifier{pub: pub}
}

func (n notifier) notify(ctx context.Context, kind amqp.EventKind, userID, entityID int64) {
	if err := n.pub.Publish(ctx, amqp.NewLedgerEvent(kind, userID, entityID)); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			"kind", kind,
			"user_id", userID,
			"entity_id", entityID,
			"error", err)
	}
}
