package event

import (
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
)

// RegisterDomainEvents registers every domain event type with the
// serializer so outbox payloads can be deserialized back into typed events.
// A type missing here would dead-letter on its first delivery attempt.
func RegisterDomainEvents(s *EventSerializer) {
	s.Register(document.EventDocumentCreated, &document.DocumentCreatedEvent{})
	s.Register(document.EventDocumentTransitioned, &document.DocumentTransitionedEvent{})
	s.Register(document.EventDocumentConverted, &document.DocumentConvertedEvent{})
	s.Register(document.EventPaymentApplied, &document.PaymentAppliedEvent{})
	s.Register(document.EventCreditApplied, &document.CreditAppliedEvent{})
	s.Register(finance.EventBalanceChanged, &finance.BalanceChangedEvent{})
}
