package finance

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventBalanceChanged = "finance.balance_changed"

// BalanceChangedEvent is raised on every balance movement
type BalanceChangedEvent struct {
	shared.BaseDomainEvent
	PartyID     uuid.UUID       `json:"partyId"`
	Side        Side            `json:"side"`
	Movement    TransactionType `json:"movement"`
	Amount      decimal.Decimal `json:"amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DocumentID  uuid.UUID       `json:"documentId"`
	Description string          `json:"description"`
}

// NewBalanceChangedEvent creates a balance changed event
func NewBalanceChangedEvent(b *PartyBalance, tx *BalanceTransaction) *BalanceChangedEvent {
	return &BalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventBalanceChanged, "PartyBalance", b.ID),
		PartyID:         b.PartyID,
		Side:            b.Side,
		Movement:        tx.Type,
		Amount:          tx.Amount,
		Outstanding:     tx.OutstandingAfter,
		DocumentID:      tx.DocumentID,
		Description: fmt.Sprintf("%s %s of %s, outstanding %s",
			b.Side, tx.Type, tx.Amount.StringFixed(2), tx.OutstandingAfter.StringFixed(2)),
	}
}
