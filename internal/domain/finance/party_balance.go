package finance

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side distinguishes money owed to us from money we owe
type Side string

const (
	SideReceivable Side = "RECEIVABLE"
	SidePayable    Side = "PAYABLE"
)

// IsValid checks if the side is known
func (s Side) IsValid() bool {
	return s == SideReceivable || s == SidePayable
}

// PartyBalance is the running financial position against one party on one
// side. Every mutation appends a BalanceTransaction, so the aggregate can
// be rebuilt from its transaction history at any time.
type PartyBalance struct {
	shared.BaseAggregateRoot
	PartyID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_party_balances_party_side,priority:1"`
	Side          Side            `gorm:"type:varchar(10);not null;uniqueIndex:idx_party_balances_party_side,priority:2"`
	TotalInvoiced decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPaid     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCredited decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PartyBalance) TableName() string {
	return "party_balances"
}

// NewPartyBalance creates an empty balance for a party and side
func NewPartyBalance(partyID uuid.UUID, side Side) (*PartyBalance, error) {
	if partyID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Party ID cannot be empty")
	}
	if !side.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, fmt.Sprintf("Unknown balance side %q", side))
	}
	return &PartyBalance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PartyID:           partyID,
		Side:              side,
		TotalInvoiced:     decimal.Zero,
		TotalPaid:         decimal.Zero,
		TotalCredited:     decimal.Zero,
	}, nil
}

// Outstanding returns the open amount, floored at zero
func (b *PartyBalance) Outstanding() decimal.Decimal {
	out := b.TotalInvoiced.Sub(b.TotalPaid).Sub(b.TotalCredited)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// RecordInvoice adds a posted invoice amount to the balance
func (b *PartyBalance) RecordInvoice(documentID uuid.UUID, amount decimal.Decimal) (*BalanceTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	b.TotalInvoiced = b.TotalInvoiced.Add(amount)
	return b.appendTransaction(documentID, TransactionInvoice, amount)
}

// RecordPayment adds a settled payment to the balance. Payments beyond the
// open amount are rejected, matching the per-invoice over-payment rule.
func (b *PartyBalance) RecordPayment(documentID uuid.UUID, amount decimal.Decimal) (*BalanceTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(b.Outstanding()) {
		return nil, shared.NewDomainError(shared.CodeOverPayment,
			fmt.Sprintf("Payment %s exceeds outstanding %s", amount.StringFixed(2), b.Outstanding().StringFixed(2)))
	}
	b.TotalPaid = b.TotalPaid.Add(amount)
	return b.appendTransaction(documentID, TransactionPayment, amount)
}

// RecordCredit adds an applied credit note amount to the balance
func (b *PartyBalance) RecordCredit(documentID uuid.UUID, amount decimal.Decimal) (*BalanceTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(b.Outstanding()) {
		return nil, shared.NewDomainError(shared.CodeOverPayment,
			fmt.Sprintf("Credit %s exceeds outstanding %s", amount.StringFixed(2), b.Outstanding().StringFixed(2)))
	}
	b.TotalCredited = b.TotalCredited.Add(amount)
	return b.appendTransaction(documentID, TransactionCredit, amount)
}

// ReverseInvoice backs an invoice amount out again, used when an untouched
// invoice is cancelled
func (b *PartyBalance) ReverseInvoice(documentID uuid.UUID, amount decimal.Decimal) (*BalanceTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if amount.GreaterThan(b.TotalInvoiced) {
		return nil, shared.NewDomainError(shared.CodeValidationFailed,
			fmt.Sprintf("Cannot reverse %s, only %s invoiced", amount.StringFixed(2), b.TotalInvoiced.StringFixed(2)))
	}
	b.TotalInvoiced = b.TotalInvoiced.Sub(amount)
	return b.appendTransaction(documentID, TransactionReversal, amount)
}

func (b *PartyBalance) appendTransaction(documentID uuid.UUID, txType TransactionType, amount decimal.Decimal) (*BalanceTransaction, error) {
	tx := NewBalanceTransaction(b.PartyID, b.Side, documentID, txType, amount, b.Outstanding())
	b.AddDomainEvent(NewBalanceChangedEvent(b, tx))
	return tx, nil
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeValidationFailed, "Amount must be positive")
	}
	return nil
}
