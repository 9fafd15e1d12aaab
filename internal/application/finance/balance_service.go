package finance

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceService exposes party balances and their movement history
type BalanceService struct {
	balanceRepo finance.Repository
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(balanceRepo finance.Repository) *BalanceService {
	return &BalanceService{balanceRepo: balanceRepo}
}

// BalanceResponse represents a party balance in API responses
type BalanceResponse struct {
	PartyID       uuid.UUID       `json:"party_id"`
	Side          finance.Side    `json:"side"`
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalCredited decimal.Decimal `json:"total_credited"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// TransactionResponse represents one balance movement
type TransactionResponse struct {
	ID               uuid.UUID               `json:"id"`
	DocumentID       uuid.UUID               `json:"document_id"`
	Type             finance.TransactionType `json:"type"`
	Amount           decimal.Decimal         `json:"amount"`
	OutstandingAfter decimal.Decimal         `json:"outstanding_after"`
	CreatedAt        time.Time               `json:"created_at"`
}

// GetBalance returns the balance for a party and side. A party with no
// movements yet has a zero balance, not an error.
func (s *BalanceService) GetBalance(ctx context.Context, partyID uuid.UUID, side finance.Side) (*BalanceResponse, error) {
	balance, err := s.balanceRepo.FindByParty(ctx, partyID, side)
	if err != nil {
		empty, newErr := finance.NewPartyBalance(partyID, side)
		if newErr != nil {
			return nil, newErr
		}
		balance = empty
	}
	return toBalanceResponse(balance), nil
}

// GetStatement lists a party's balance movements, newest first
func (s *BalanceService) GetStatement(ctx context.Context, partyID uuid.UUID, side finance.Side, limit int) ([]TransactionResponse, error) {
	txs, err := s.balanceRepo.FindTransactions(ctx, partyID, side, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = TransactionResponse{
			ID:               tx.ID,
			DocumentID:       tx.DocumentID,
			Type:             tx.Type,
			Amount:           tx.Amount,
			OutstandingAfter: tx.OutstandingAfter,
			CreatedAt:        tx.CreatedAt,
		}
	}
	return out, nil
}

func toBalanceResponse(b *finance.PartyBalance) *BalanceResponse {
	return &BalanceResponse{
		PartyID:       b.PartyID,
		Side:          b.Side,
		TotalInvoiced: b.TotalInvoiced,
		TotalPaid:     b.TotalPaid,
		TotalCredited: b.TotalCredited,
		Outstanding:   b.Outstanding(),
	}
}

// ReconciliationService cross-checks the running totals against their
// underlying ledgers
type ReconciliationService struct {
	docRepo    document.Repository
	reconciler *finance.Reconciler
	quantities *ledger.Service
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(docRepo document.Repository, balanceRepo finance.Repository, quantities *ledger.Service) *ReconciliationService {
	return &ReconciliationService{
		docRepo:    docRepo,
		reconciler: finance.NewReconciler(balanceRepo),
		quantities: quantities,
	}
}

// ReconciliationReport collects every drift found for one party
type ReconciliationReport struct {
	PartyID        uuid.UUID              `json:"party_id"`
	BalanceDrifts  []finance.BalanceDrift `json:"balance_drifts"`
	QuantityDrifts []ledger.Drift         `json:"quantity_drifts"`
	Clean          bool                   `json:"clean"`
}

// CheckParty verifies both balance sides and every rollup counter on the
// party's documents against the ledgers
func (s *ReconciliationService) CheckParty(ctx context.Context, partyID uuid.UUID) (*ReconciliationReport, error) {
	report := &ReconciliationReport{PartyID: partyID}

	for _, side := range []finance.Side{finance.SideReceivable, finance.SidePayable} {
		drift, err := s.reconciler.Check(ctx, partyID, side)
		if err != nil {
			// A side with no balance yet has nothing to check
			continue
		}
		if drift != nil {
			report.BalanceDrifts = append(report.BalanceDrifts, *drift)
		}
	}

	docs, err := s.docRepo.FindByFilter(ctx, documentFilterForParty(partyID))
	if err != nil {
		return nil, err
	}
	kinds := []document.ConsumptionKind{
		document.KindConverted, document.KindReceived, document.KindDelivered,
		document.KindInvoiced, document.KindReturned,
	}
	for _, doc := range docs.Items {
		for i := range doc.Lines {
			for _, kind := range kinds {
				drift, err := s.quantities.Reconcile(ctx, &doc.Lines[i], kind)
				if err != nil {
					return nil, err
				}
				if drift != nil {
					report.QuantityDrifts = append(report.QuantityDrifts, *drift)
				}
			}
		}
	}

	report.Clean = len(report.BalanceDrifts) == 0 && len(report.QuantityDrifts) == 0
	return report, nil
}

func documentFilterForParty(partyID uuid.UUID) document.Filter {
	filter := document.Filter{PartyID: &partyID}
	filter.Filter.Page = 1
	filter.Filter.PageSize = 1000
	filter.Filter.OrderBy = "created_at"
	filter.Filter.OrderDir = "asc"
	return filter
}
