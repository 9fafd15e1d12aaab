package audit

import (
	"context"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// ActivityLogger writes the back-office audit trail. It consumes domain
// events delivered through the outbox and emits one structured line per
// activity. It never returns an error: a lost audit line must not push an
// outbox entry into retry.
type ActivityLogger struct {
	logger *zap.Logger
}

// NewActivityLogger creates a new ActivityLogger
func NewActivityLogger(logger *zap.Logger) *ActivityLogger {
	return &ActivityLogger{logger: logger.Named("activity")}
}

// EventTypes returns the event types the logger subscribes to
func (l *ActivityLogger) EventTypes() []string {
	return []string{
		document.EventDocumentCreated,
		document.EventDocumentTransitioned,
		document.EventDocumentConverted,
		document.EventPaymentApplied,
		document.EventCreditApplied,
		finance.EventBalanceChanged,
	}
}

// Handle logs one domain event as an activity line
func (l *ActivityLogger) Handle(_ context.Context, e shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", e.EventType()),
		zap.String("document_type", e.AggregateType()),
		zap.String("document_id", e.AggregateID().String()),
		zap.Time("occurred_at", e.OccurredAt()),
	}

	switch ev := e.(type) {
	case *document.DocumentCreatedEvent:
		fields = append(fields,
			zap.String("actor_id", ev.ActorID.String()),
			zap.String("description", ev.Description),
		)
	case *document.DocumentTransitionedEvent:
		fields = append(fields,
			zap.String("actor_id", ev.ActorID.String()),
			zap.String("action", ev.Action.String()),
			zap.String("description", ev.Description),
		)
	case *document.DocumentConvertedEvent:
		fields = append(fields,
			zap.String("actor_id", ev.ActorID.String()),
			zap.String("target_id", ev.TargetID.String()),
			zap.String("description", ev.Description),
		)
	case *document.PaymentAppliedEvent:
		fields = append(fields,
			zap.String("actor_id", ev.ActorID.String()),
			zap.String("amount", ev.Amount.StringFixed(2)),
			zap.String("description", ev.Description),
		)
	case *document.CreditAppliedEvent:
		fields = append(fields,
			zap.String("actor_id", ev.ActorID.String()),
			zap.String("amount", ev.Amount.StringFixed(2)),
			zap.String("description", ev.Description),
		)
	case *finance.BalanceChangedEvent:
		fields = append(fields,
			zap.String("party_id", ev.PartyID.String()),
			zap.String("description", ev.Description),
		)
	}

	l.logger.Info("activity", fields...)
	return nil
}
