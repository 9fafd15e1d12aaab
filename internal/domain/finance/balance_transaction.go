package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a balance movement
type TransactionType string

const (
	TransactionInvoice  TransactionType = "INVOICE"
	TransactionPayment  TransactionType = "PAYMENT"
	TransactionCredit   TransactionType = "CREDIT"
	TransactionReversal TransactionType = "REVERSAL"
)

// BalanceTransaction is one immutable balance movement. OutstandingAfter
// snapshots the open amount right after the movement, so the history reads
// like a bank statement.
type BalanceTransaction struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	PartyID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Side             Side            `gorm:"type:varchar(10);not null"`
	DocumentID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type             TransactionType `gorm:"type:varchar(10);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OutstandingAfter decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BalanceTransaction) TableName() string {
	return "balance_transactions"
}

// NewBalanceTransaction creates a balance movement row
func NewBalanceTransaction(partyID uuid.UUID, side Side, documentID uuid.UUID, txType TransactionType, amount, outstandingAfter decimal.Decimal) *BalanceTransaction {
	return &BalanceTransaction{
		ID:               uuid.New(),
		PartyID:          partyID,
		Side:             side,
		DocumentID:       documentID,
		Type:             txType,
		Amount:           amount,
		OutstandingAfter: outstandingAfter,
		CreatedAt:        time.Now(),
	}
}

// Signed returns the movement's effect on the outstanding amount
func (t *BalanceTransaction) Signed() decimal.Decimal {
	switch t.Type {
	case TransactionInvoice:
		return t.Amount
	case TransactionPayment, TransactionCredit, TransactionReversal:
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// Repository defines persistence for balances and their transactions
type Repository interface {
	// FindByParty loads the balance for a party and side, or ErrNotFound
	FindByParty(ctx context.Context, partyID uuid.UUID, side Side) (*PartyBalance, error)

	// FindByPartyForUpdate loads the balance with a row lock, creating an
	// empty one if the party has no balance yet
	FindByPartyForUpdate(ctx context.Context, partyID uuid.UUID, side Side) (*PartyBalance, error)

	// Save persists the balance and appends its transactions atomically
	Save(ctx context.Context, balance *PartyBalance, txs ...*BalanceTransaction) error

	// FindTransactions lists a party's movements, newest first
	FindTransactions(ctx context.Context, partyID uuid.UUID, side Side, limit int) ([]*BalanceTransaction, error)

	// FindAllTransactions streams every movement for one party and side
	// in chronological order, used by reconciliation
	FindAllTransactions(ctx context.Context, partyID uuid.UUID, side Side) ([]*BalanceTransaction, error)
}
