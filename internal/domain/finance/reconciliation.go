package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconciler rebuilds a party balance from its transaction history and
// reports drift against the stored running totals
type Reconciler struct {
	repo Repository
}

// NewReconciler creates a balance reconciler
func NewReconciler(repo Repository) *Reconciler {
	return &Reconciler{repo: repo}
}

// BalanceDrift reports a stored balance that disagrees with its rebuilt
// transaction history
type BalanceDrift struct {
	PartyID            uuid.UUID       `json:"partyId"`
	Side               Side            `json:"side"`
	StoredOutstanding  decimal.Decimal `json:"storedOutstanding"`
	RebuiltOutstanding decimal.Decimal `json:"rebuiltOutstanding"`
	TransactionCount   int             `json:"transactionCount"`
}

// Rebuild replays a party's movements into a fresh balance
func (r *Reconciler) Rebuild(ctx context.Context, partyID uuid.UUID, side Side) (*PartyBalance, int, error) {
	txs, err := r.repo.FindAllTransactions(ctx, partyID, side)
	if err != nil {
		return nil, 0, err
	}

	rebuilt, err := NewPartyBalance(partyID, side)
	if err != nil {
		return nil, 0, err
	}
	for _, tx := range txs {
		switch tx.Type {
		case TransactionInvoice:
			rebuilt.TotalInvoiced = rebuilt.TotalInvoiced.Add(tx.Amount)
		case TransactionPayment:
			rebuilt.TotalPaid = rebuilt.TotalPaid.Add(tx.Amount)
		case TransactionCredit:
			rebuilt.TotalCredited = rebuilt.TotalCredited.Add(tx.Amount)
		case TransactionReversal:
			rebuilt.TotalInvoiced = rebuilt.TotalInvoiced.Sub(tx.Amount)
		}
	}
	return rebuilt, len(txs), nil
}

// Check compares the stored balance with its rebuilt history. A nil drift
// means they agree.
func (r *Reconciler) Check(ctx context.Context, partyID uuid.UUID, side Side) (*BalanceDrift, error) {
	stored, err := r.repo.FindByParty(ctx, partyID, side)
	if err != nil {
		return nil, err
	}
	rebuilt, count, err := r.Rebuild(ctx, partyID, side)
	if err != nil {
		return nil, err
	}

	if stored.TotalInvoiced.Equal(rebuilt.TotalInvoiced) &&
		stored.TotalPaid.Equal(rebuilt.TotalPaid) &&
		stored.TotalCredited.Equal(rebuilt.TotalCredited) {
		return nil, nil
	}
	return &BalanceDrift{
		PartyID:            partyID,
		Side:               side,
		StoredOutstanding:  stored.Outstanding(),
		RebuiltOutstanding: rebuilt.Outstanding(),
		TransactionCount:   count,
	}, nil
}
