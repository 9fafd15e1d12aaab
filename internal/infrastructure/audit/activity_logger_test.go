package audit

import (
	"context"
	"testing"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestActivityLogger_Handle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := NewActivityLogger(zap.New(core))

	actorID := uuid.New()
	doc, err := document.New(document.TypeARInvoice, "INV-2026-000001", uuid.New(), "Acme", actorID)
	require.NoError(t, err)

	event := document.NewPaymentAppliedEvent(doc, decimal.RequireFromString("200"), actorID, document.StatusUnpaid)
	require.NoError(t, logger.Handle(context.Background(), event))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "activity", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, document.EventPaymentApplied, fields["event_type"])
	assert.Equal(t, doc.ID.String(), fields["document_id"])
	assert.Equal(t, actorID.String(), fields["actor_id"])
	assert.Equal(t, "200.00", fields["amount"])
}

func TestActivityLogger_EventTypes(t *testing.T) {
	logger := NewActivityLogger(zap.NewNop())
	assert.Contains(t, logger.EventTypes(), document.EventDocumentTransitioned)
	assert.Len(t, logger.EventTypes(), 6)
}
