package ledger

import (
	"context"
	"testing"

	"github.com/erp/backoffice/internal/domain/derive"
	"github.com/erp/backoffice/internal/domain/document"
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

type fakeRepo struct {
	rows []*Consumption
}

func (f *fakeRepo) Save(_ context.Context, rows ...*Consumption) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeRepo) FindByUpstreamLine(_ context.Context, upstreamLineID uuid.UUID) ([]*Consumption, error) {
	var out []*Consumption
	for _, r := range f.rows {
		if r.UpstreamLineID == upstreamLineID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindByDownstreamDocument(_ context.Context, downstreamDocID uuid.UUID) ([]*Consumption, error) {
	var out []*Consumption
	for _, r := range f.rows {
		if r.DownstreamDocumentID == downstreamDocID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) Exists(_ context.Context, downstreamLineID uuid.UUID, direction Direction) (bool, error) {
	for _, r := range f.rows {
		if r.DownstreamLineID == downstreamLineID && r.Direction == direction {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) SumByUpstreamLine(_ context.Context, upstreamLineID uuid.UUID, kind document.ConsumptionKind) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range f.rows {
		if r.UpstreamLineID != upstreamLineID || r.Kind != kind {
			continue
		}
		if r.Direction == DirectionConsume {
			sum = sum.Add(r.Quantity)
		} else {
			sum = sum.Sub(r.Quantity)
		}
	}
	return sum, nil
}

func convertedPair(t *testing.T, qty string) (*document.Document, *document.Document) {
	t.Helper()
	actor := uuid.New()
	po, err := document.New(document.TypePurchaseOrder, "PO-2026-000001", uuid.New(), "Globex Supply", actor)
	require.NoError(t, err)
	_, err = po.AddLine(nil, "Steel bolts M8", dec("100"), dec("10.00"), derive.NoDiscount(), dec("10"))
	require.NoError(t, err)
	require.NoError(t, po.Apply(document.ActionApprove, actor, ""))

	gr, err := document.Convert(po, document.TypeGoodsReceipt, "GR-2026-000001",
		[]document.LineSelection{{LineID: po.Lines[0].ID, Quantity: dec(qty)}}, actor)
	require.NoError(t, err)
	return po, gr
}

func TestRecordConversion(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	po, gr := convertedPair(t, "60")

	require.NoError(t, svc.RecordConversion(context.Background(), po, gr))

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.Equal(t, po.Lines[0].ID, row.UpstreamLineID)
	assert.Equal(t, gr.Lines[0].ID, row.DownstreamLineID)
	assert.Equal(t, document.KindReceived, row.Kind)
	assert.Equal(t, DirectionConsume, row.Direction)
	assert.Equal(t, "60", row.Quantity.String())
}

func TestRecordConversion_Idempotent(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	po, gr := convertedPair(t, "60")

	require.NoError(t, svc.RecordConversion(context.Background(), po, gr))
	require.NoError(t, svc.RecordConversion(context.Background(), po, gr))

	assert.Len(t, repo.rows, 1)
}

func TestReleaseDocument(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	po, gr := convertedPair(t, "60")
	require.NoError(t, svc.RecordConversion(context.Background(), po, gr))

	require.NoError(t, svc.ReleaseDocument(context.Background(), po, gr))

	// Counter rolled back, release row written
	assert.True(t, po.Lines[0].ReceivedQty.IsZero())
	require.Len(t, repo.rows, 2)
	assert.Equal(t, DirectionRelease, repo.rows[1].Direction)

	// Ledger nets to zero
	net, err := repo.SumByUpstreamLine(context.Background(), po.Lines[0].ID, document.KindReceived)
	require.NoError(t, err)
	assert.True(t, net.IsZero())
}

func TestReleaseDocument_Idempotent(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	po, gr := convertedPair(t, "60")
	require.NoError(t, svc.RecordConversion(context.Background(), po, gr))

	require.NoError(t, svc.ReleaseDocument(context.Background(), po, gr))
	require.NoError(t, svc.ReleaseDocument(context.Background(), po, gr))

	// Releasing twice must not drive the counter negative
	assert.True(t, po.Lines[0].ReceivedQty.IsZero())
	assert.Len(t, repo.rows, 2)
}

func TestReconcile(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	po, gr := convertedPair(t, "60")
	require.NoError(t, svc.RecordConversion(context.Background(), po, gr))

	drift, err := svc.Reconcile(context.Background(), &po.Lines[0], document.KindReceived)
	require.NoError(t, err)
	assert.Nil(t, drift, "counter and ledger agree after a recorded conversion")

	// Damage the counter and the drift must surface
	po.Lines[0].ReceivedQty = dec("99")
	drift, err = svc.Reconcile(context.Background(), &po.Lines[0], document.KindReceived)
	require.NoError(t, err)
	require.NotNil(t, drift)
	assert.Equal(t, "99", drift.Counter.String())
	assert.Equal(t, "60", drift.Ledger.String())
}
