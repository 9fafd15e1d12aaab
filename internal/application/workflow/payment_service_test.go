package workflow

import (
	"context"
	"testing"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createARInvoice(t *testing.T, env *testEnv, actor uuid.UUID) *DocumentResponse {
	t.Helper()
	resp, err := env.documents.Create(context.Background(), CreateDocumentRequest{
		Type:      document.TypeARInvoice,
		PartyID:   uuid.New(),
		PartyName: "Initech Retail",
		Lines: []CreateLineInput{
			{Description: "Consulting hours", Quantity: dec("5"), UnitPrice: dec("100.00")},
		},
		ActorID: actor,
	})
	require.NoError(t, err)
	return resp
}

func TestPaymentService_ApplyPayment(t *testing.T) {
	env := newTestEnv()
	actor := uuid.New()
	inv := createARInvoice(t, env, actor)
	ctx := context.Background()

	resp, err := env.payments.ApplyPayment(ctx, inv.ID, ApplyPaymentRequest{
		Amount:  dec("200.00"),
		ActorID: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, document.StatusPartiallyPaid, resp.Status)
	assert.Equal(t, "300.00", resp.BalanceAmount.StringFixed(2))

	balance, err := env.balanceRepo.FindByParty(ctx, inv.PartyID, finance.SideReceivable)
	require.NoError(t, err)
	assert.Equal(t, "300.00", balance.Outstanding().StringFixed(2))

	resp, err = env.payments.ApplyPayment(ctx, inv.ID, ApplyPaymentRequest{
		Amount:  dec("300.00"),
		ActorID: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, document.StatusPaid, resp.Status)
	assert.True(t, resp.BalanceAmount.IsZero())
}

func TestPaymentService_OverPaymentRejected(t *testing.T) {
	env := newTestEnv()
	actor := uuid.New()
	inv := createARInvoice(t, env, actor)

	_, err := env.payments.ApplyPayment(context.Background(), inv.ID, ApplyPaymentRequest{
		Amount:  dec("500.01"),
		ActorID: actor,
	})
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeOverPayment))

	current, err := env.documents.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusUnpaid, current.Status)
	assert.Equal(t, "500.00", current.BalanceAmount.StringFixed(2))
}

func TestPaymentService_IdempotentRetry(t *testing.T) {
	env := newTestEnv()
	actor := uuid.New()
	inv := createARInvoice(t, env, actor)
	ctx := context.Background()

	req := ApplyPaymentRequest{
		Amount:         dec("200.00"),
		IdempotencyKey: "bank-stmt-42",
		ActorID:        actor,
	}

	first, err := env.payments.ApplyPayment(ctx, inv.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "300.00", first.BalanceAmount.StringFixed(2))

	// Same key replayed: no double deduction
	second, err := env.payments.ApplyPayment(ctx, inv.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "300.00", second.BalanceAmount.StringFixed(2))

	balance, err := env.balanceRepo.FindByParty(ctx, inv.PartyID, finance.SideReceivable)
	require.NoError(t, err)
	assert.Equal(t, "300.00", balance.Outstanding().StringFixed(2))
}

func TestPaymentService_ApplyCredit(t *testing.T) {
	env := newTestEnv()
	actor := uuid.New()
	ctx := context.Background()

	inv, err := env.documents.Create(ctx, CreateDocumentRequest{
		Type:      document.TypeARInvoice,
		PartyID:   uuid.New(),
		PartyName: "Initech Retail",
		Lines: []CreateLineInput{
			{Description: "Consulting hours", Quantity: dec("8"), UnitPrice: dec("120.00"), TaxRate: taxRate("10")},
		},
		ActorID: actor,
	})
	require.NoError(t, err)

	cn, err := env.conversions.Convert(ctx, inv.ID, ConvertRequest{
		TargetType: document.TypeCreditNote,
		Lines:      []ConvertLineInput{{LineID: inv.Lines[0].ID, Quantity: dec("2")}},
		ActorID:    actor,
	})
	require.NoError(t, err)

	// Unposted credit note cannot be applied
	_, err = env.payments.ApplyCredit(ctx, inv.ID, ApplyCreditRequest{CreditNoteID: cn.Target.ID, ActorID: actor})
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))

	_, err = env.documents.Transition(ctx, cn.Target.ID, TransitionRequest{Action: document.ActionPost, ActorID: actor})
	require.NoError(t, err)

	resp, err := env.payments.ApplyCredit(ctx, inv.ID, ApplyCreditRequest{CreditNoteID: cn.Target.ID, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, document.StatusPartiallyPaid, resp.Status)
	// 1056.00 invoice minus the 264.00 credit
	assert.Equal(t, "792.00", resp.BalanceAmount.StringFixed(2))

	balance, err := env.balanceRepo.FindByParty(ctx, inv.PartyID, finance.SideReceivable)
	require.NoError(t, err)
	assert.Equal(t, "264.00", balance.TotalCredited.StringFixed(2))

	// Applying consumes the note
	applied, err := env.documents.GetByID(ctx, cn.Target.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusApplied, applied.Status)
}

func TestPaymentService_CreditNoteAppliesOnce(t *testing.T) {
	env := newTestEnv()
	actor := uuid.New()
	ctx := context.Background()
	party := uuid.New()

	newInvoice := func() *DocumentResponse {
		resp, err := env.documents.Create(ctx, CreateDocumentRequest{
			Type:      document.TypeARInvoice,
			PartyID:   party,
			PartyName: "Initech Retail",
			Lines: []CreateLineInput{
				{Description: "Consulting hours", Quantity: dec("5"), UnitPrice: dec("100.00")},
			},
			ActorID: actor,
		})
		require.NoError(t, err)
		return resp
	}
	first := newInvoice()
	second := newInvoice()

	cn, err := env.documents.Create(ctx, CreateDocumentRequest{
		Type:      document.TypeCreditNote,
		PartyID:   party,
		PartyName: "Initech Retail",
		Lines: []CreateLineInput{
			{Description: "Goodwill adjustment", Quantity: dec("1"), UnitPrice: dec("50.00")},
		},
		ActorID: actor,
	})
	require.NoError(t, err)
	_, err = env.documents.Transition(ctx, cn.ID, TransitionRequest{Action: document.ActionPost, ActorID: actor})
	require.NoError(t, err)

	_, err = env.payments.ApplyCredit(ctx, first.ID, ApplyCreditRequest{CreditNoteID: cn.ID, ActorID: actor})
	require.NoError(t, err)

	// The consumed note cannot settle a second invoice
	_, err = env.payments.ApplyCredit(ctx, second.ID, ApplyCreditRequest{CreditNoteID: cn.ID, ActorID: actor})
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidTransition))

	balance, err := env.balanceRepo.FindByParty(ctx, party, finance.SideReceivable)
	require.NoError(t, err)
	assert.Equal(t, "50.00", balance.TotalCredited.StringFixed(2))

	untouched, err := env.documents.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", untouched.BalanceAmount.StringFixed(2))
}

func TestPaymentService_CreditRequiresMatchingParty(t *testing.T) {
	env := newTestEnv()
	actor := uuid.New()
	ctx := context.Background()
	inv := createARInvoice(t, env, actor)

	other, err := env.documents.Create(ctx, CreateDocumentRequest{
		Type:      document.TypeCreditNote,
		PartyID:   uuid.New(),
		PartyName: "Someone Else",
		Lines: []CreateLineInput{
			{Description: "Adjustment", Quantity: dec("1"), UnitPrice: dec("10.00")},
		},
		ActorID: actor,
	})
	require.NoError(t, err)
	_, err = env.documents.Transition(ctx, other.ID, TransitionRequest{Action: document.ActionPost, ActorID: actor})
	require.NoError(t, err)

	_, err = env.payments.ApplyCredit(ctx, inv.ID, ApplyCreditRequest{CreditNoteID: other.ID, ActorID: actor})
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}

func TestPaymentService_PaymentOnNonInvoiceRejected(t *testing.T) {
	env := newTestEnv()
	actor := uuid.New()
	po := createPurchaseOrder(t, env, actor)

	_, err := env.payments.ApplyPayment(context.Background(), po.ID, ApplyPaymentRequest{
		Amount:  dec("10.00"),
		ActorID: actor,
	})
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeValidationFailed))
}
