package document

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventDocumentCreated      = "document.created"
	EventDocumentTransitioned = "document.transitioned"
	EventDocumentConverted    = "document.converted"
	EventPaymentApplied       = "document.payment_applied"
	EventCreditApplied        = "document.credit_applied"
)

// DocumentCreatedEvent is raised when a new document is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string    `json:"documentNumber"`
	DocumentType   Type      `json:"documentType"`
	PartyID        uuid.UUID `json:"partyId"`
	ActorID        uuid.UUID `json:"actorId"`
	Description    string    `json:"description"`
}

// NewDocumentCreatedEvent creates a document created event
func NewDocumentCreatedEvent(d *Document, actorID uuid.UUID) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDocumentCreated, d.Type.String(), d.ID),
		DocumentNumber:  d.Number,
		DocumentType:    d.Type,
		PartyID:         d.PartyID,
		ActorID:         actorID,
		Description:     fmt.Sprintf("%s %s created for %s", d.Type, d.Number, d.PartyName),
	}
}

// DocumentTransitionedEvent is raised on every workflow transition
type DocumentTransitionedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string    `json:"documentNumber"`
	DocumentType   Type      `json:"documentType"`
	Action         Action    `json:"action"`
	FromStatus     Status    `json:"fromStatus"`
	ToStatus       Status    `json:"toStatus"`
	ActorID        uuid.UUID `json:"actorId"`
	Reason         string    `json:"reason,omitempty"`
	Description    string    `json:"description"`
}

// NewDocumentTransitionedEvent creates a transition event
func NewDocumentTransitionedEvent(d *Document, action Action, from, to Status, actorID uuid.UUID, reason string) *DocumentTransitionedEvent {
	return &DocumentTransitionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDocumentTransitioned, d.Type.String(), d.ID),
		DocumentNumber:  d.Number,
		DocumentType:    d.Type,
		Action:          action,
		FromStatus:      from,
		ToStatus:        to,
		ActorID:         actorID,
		Reason:          reason,
		Description:     fmt.Sprintf("%s %s: %s (%s -> %s)", d.Type, d.Number, action, from, to),
	}
}

// DocumentConvertedEvent is raised when a downstream document is created
// from an upstream one
type DocumentConvertedEvent struct {
	shared.BaseDomainEvent
	SourceNumber string          `json:"sourceNumber"`
	SourceType   Type            `json:"sourceType"`
	TargetID     uuid.UUID       `json:"targetId"`
	TargetNumber string          `json:"targetNumber"`
	TargetType   Type            `json:"targetType"`
	LineCount    int             `json:"lineCount"`
	Quantity     decimal.Decimal `json:"quantity"`
	ActorID      uuid.UUID       `json:"actorId"`
	Description  string          `json:"description"`
}

// NewDocumentConvertedEvent creates a conversion event on the source document
func NewDocumentConvertedEvent(source, target *Document, quantity decimal.Decimal, actorID uuid.UUID) *DocumentConvertedEvent {
	return &DocumentConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDocumentConverted, source.Type.String(), source.ID),
		SourceNumber:    source.Number,
		SourceType:      source.Type,
		TargetID:        target.ID,
		TargetNumber:    target.Number,
		TargetType:      target.Type,
		LineCount:       len(target.Lines),
		Quantity:        quantity,
		ActorID:         actorID,
		Description:     fmt.Sprintf("%s %s converted to %s %s", source.Type, source.Number, target.Type, target.Number),
	}
}

// PaymentAppliedEvent is raised when a payment reduces an invoice balance
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string          `json:"documentNumber"`
	DocumentType   Type            `json:"documentType"`
	PartyID        uuid.UUID       `json:"partyId"`
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	FromStatus     Status          `json:"fromStatus"`
	ToStatus       Status          `json:"toStatus"`
	ActorID        uuid.UUID       `json:"actorId"`
	Description    string          `json:"description"`
}

// NewPaymentAppliedEvent creates a payment applied event
func NewPaymentAppliedEvent(d *Document, amount decimal.Decimal, actorID uuid.UUID, from Status) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentApplied, d.Type.String(), d.ID),
		DocumentNumber:  d.Number,
		DocumentType:    d.Type,
		PartyID:         d.PartyID,
		Amount:          amount,
		Balance:         d.BalanceAmount,
		FromStatus:      from,
		ToStatus:        d.Status,
		ActorID:         actorID,
		Description:     fmt.Sprintf("Payment of %s applied to %s %s, balance %s", amount.StringFixed(2), d.Type, d.Number, d.BalanceAmount.StringFixed(2)),
	}
}

// CreditAppliedEvent is raised when a posted credit note reduces an
// AR invoice balance
type CreditAppliedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string          `json:"documentNumber"`
	PartyID        uuid.UUID       `json:"partyId"`
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	FromStatus     Status          `json:"fromStatus"`
	ToStatus       Status          `json:"toStatus"`
	ActorID        uuid.UUID       `json:"actorId"`
	Description    string          `json:"description"`
}

// NewCreditAppliedEvent creates a credit applied event
func NewCreditAppliedEvent(d *Document, amount decimal.Decimal, actorID uuid.UUID, from Status) *CreditAppliedEvent {
	return &CreditAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCreditApplied, d.Type.String(), d.ID),
		DocumentNumber:  d.Number,
		PartyID:         d.PartyID,
		Amount:          amount,
		Balance:         d.BalanceAmount,
		FromStatus:      from,
		ToStatus:        d.Status,
		ActorID:         actorID,
		Description:     fmt.Sprintf("Credit of %s applied to %s %s, balance %s", amount.StringFixed(2), d.Type, d.Number, d.BalanceAmount.StringFixed(2)),
	}
}
