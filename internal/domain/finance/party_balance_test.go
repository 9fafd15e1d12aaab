package finance

import (
	"context"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewPartyBalance(t *testing.T) {
	partyID := uuid.New()
	b, err := NewPartyBalance(partyID, SideReceivable)
	require.NoError(t, err)
	assert.Equal(t, partyID, b.PartyID)
	assert.True(t, b.Outstanding().IsZero())

	_, err = NewPartyBalance(uuid.Nil, SideReceivable)
	require.Error(t, err)

	_, err = NewPartyBalance(uuid.New(), Side("ESCROW"))
	require.Error(t, err)
}

func TestPartyBalance_InvoiceThenPayments(t *testing.T) {
	b, err := NewPartyBalance(uuid.New(), SideReceivable)
	require.NoError(t, err)
	invID := uuid.New()

	_, err = b.RecordInvoice(invID, dec("500.00"))
	require.NoError(t, err)
	assert.Equal(t, "500.00", b.Outstanding().StringFixed(2))

	tx, err := b.RecordPayment(invID, dec("200.00"))
	require.NoError(t, err)
	assert.Equal(t, "300.00", b.Outstanding().StringFixed(2))
	assert.Equal(t, "300.00", tx.OutstandingAfter.StringFixed(2))

	_, err = b.RecordPayment(invID, dec("300.00"))
	require.NoError(t, err)
	assert.True(t, b.Outstanding().IsZero())
}

func TestPartyBalance_OverPaymentRejected(t *testing.T) {
	b, err := NewPartyBalance(uuid.New(), SideReceivable)
	require.NoError(t, err)
	invID := uuid.New()

	_, err = b.RecordInvoice(invID, dec("100.00"))
	require.NoError(t, err)

	_, err = b.RecordPayment(invID, dec("100.01"))
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeOverPayment))
	assert.Equal(t, "100.00", b.Outstanding().StringFixed(2))
}

func TestPartyBalance_CreditReducesOutstanding(t *testing.T) {
	b, err := NewPartyBalance(uuid.New(), SideReceivable)
	require.NoError(t, err)
	invID := uuid.New()

	_, err = b.RecordInvoice(invID, dec("250.00"))
	require.NoError(t, err)
	_, err = b.RecordCredit(uuid.New(), dec("50.00"))
	require.NoError(t, err)
	assert.Equal(t, "200.00", b.Outstanding().StringFixed(2))

	_, err = b.RecordCredit(uuid.New(), dec("250.00"))
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeOverPayment))
}

func TestPartyBalance_ReverseInvoice(t *testing.T) {
	b, err := NewPartyBalance(uuid.New(), SidePayable)
	require.NoError(t, err)
	invID := uuid.New()

	_, err = b.RecordInvoice(invID, dec("400.00"))
	require.NoError(t, err)
	_, err = b.ReverseInvoice(invID, dec("400.00"))
	require.NoError(t, err)
	assert.True(t, b.Outstanding().IsZero())

	_, err = b.ReverseInvoice(invID, dec("1.00"))
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestPartyBalance_RejectsNonPositiveAmounts(t *testing.T) {
	b, err := NewPartyBalance(uuid.New(), SideReceivable)
	require.NoError(t, err)

	_, err = b.RecordInvoice(uuid.New(), dec("0"))
	require.Error(t, err)
	_, err = b.RecordPayment(uuid.New(), dec("-5"))
	require.Error(t, err)
}

func TestPartyBalance_EmitsEvents(t *testing.T) {
	b, err := NewPartyBalance(uuid.New(), SideReceivable)
	require.NoError(t, err)

	_, err = b.RecordInvoice(uuid.New(), dec("120.00"))
	require.NoError(t, err)

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	evt, ok := events[0].(*BalanceChangedEvent)
	require.True(t, ok)
	assert.Equal(t, TransactionInvoice, evt.Movement)
	assert.Equal(t, "120.00", evt.Outstanding.StringFixed(2))
}

type fakeBalanceRepo struct {
	balances map[string]*PartyBalance
	txs      []*BalanceTransaction
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[string]*PartyBalance)}
}

func balanceKey(partyID uuid.UUID, side Side) string {
	return partyID.String() + "/" + string(side)
}

func (f *fakeBalanceRepo) FindByParty(_ context.Context, partyID uuid.UUID, side Side) (*PartyBalance, error) {
	b, ok := f.balances[balanceKey(partyID, side)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (f *fakeBalanceRepo) FindByPartyForUpdate(ctx context.Context, partyID uuid.UUID, side Side) (*PartyBalance, error) {
	if b, ok := f.balances[balanceKey(partyID, side)]; ok {
		return b, nil
	}
	b, err := NewPartyBalance(partyID, side)
	if err != nil {
		return nil, err
	}
	f.balances[balanceKey(partyID, side)] = b
	return b, nil
}

func (f *fakeBalanceRepo) Save(_ context.Context, balance *PartyBalance, txs ...*BalanceTransaction) error {
	f.balances[balanceKey(balance.PartyID, balance.Side)] = balance
	f.txs = append(f.txs, txs...)
	return nil
}

func (f *fakeBalanceRepo) FindTransactions(_ context.Context, partyID uuid.UUID, side Side, limit int) ([]*BalanceTransaction, error) {
	var out []*BalanceTransaction
	for i := len(f.txs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if f.txs[i].PartyID == partyID && f.txs[i].Side == side {
			out = append(out, f.txs[i])
		}
	}
	return out, nil
}

func (f *fakeBalanceRepo) FindAllTransactions(_ context.Context, partyID uuid.UUID, side Side) ([]*BalanceTransaction, error) {
	var out []*BalanceTransaction
	for _, tx := range f.txs {
		if tx.PartyID == partyID && tx.Side == side {
			out = append(out, tx)
		}
	}
	return out, nil
}

func TestReconciler_AgreesAfterNormalFlow(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBalanceRepo()
	partyID := uuid.New()

	b, err := repo.FindByPartyForUpdate(ctx, partyID, SideReceivable)
	require.NoError(t, err)
	invID := uuid.New()

	tx1, err := b.RecordInvoice(invID, dec("500.00"))
	require.NoError(t, err)
	tx2, err := b.RecordPayment(invID, dec("200.00"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, b, tx1, tx2))

	drift, err := NewReconciler(repo).Check(ctx, partyID, SideReceivable)
	require.NoError(t, err)
	assert.Nil(t, drift)
}

func TestReconciler_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	repo := newFakeBalanceRepo()
	partyID := uuid.New()

	b, err := repo.FindByPartyForUpdate(ctx, partyID, SideReceivable)
	require.NoError(t, err)
	tx, err := b.RecordInvoice(uuid.New(), dec("500.00"))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, b, tx))

	// Corrupt the stored totals behind the ledger's back
	b.TotalInvoiced = dec("600.00")

	drift, err := NewReconciler(repo).Check(ctx, partyID, SideReceivable)
	require.NoError(t, err)
	require.NotNil(t, drift)
	assert.Equal(t, "600.00", drift.StoredOutstanding.StringFixed(2))
	assert.Equal(t, "500.00", drift.RebuiltOutstanding.StringFixed(2))
	assert.Equal(t, 1, drift.TransactionCount)
}
