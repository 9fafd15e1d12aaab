// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a nil meter is passed to NewBusinessMetrics
var ErrMeterNil = errors.New("telemetry: meter is nil")

// BusinessMetrics tracks document workflow activity: creations,
// transitions, conversions and settlements
type BusinessMetrics struct {
	logger *zap.Logger

	documentsCreated metric.Int64Counter
	documentAmount   metric.Float64Counter
	transitionsTotal metric.Int64Counter
	conversionsTotal metric.Int64Counter
	paymentsTotal    metric.Int64Counter
	paymentAmount    metric.Float64Counter
}

// NewBusinessMetrics creates a new BusinessMetrics instance
func NewBusinessMetrics(meter metric.Meter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}

	var err error
	bm.documentsCreated, err = meter.Int64Counter(
		"erp_document_created_total",
		metric.WithDescription("Total number of documents created"),
		metric.WithUnit("{documents}"),
	)
	if err != nil {
		return nil, err
	}

	bm.documentAmount, err = meter.Float64Counter(
		"erp_document_amount_total",
		metric.WithDescription("Total grand total amount of created documents"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, err
	}

	bm.transitionsTotal, err = meter.Int64Counter(
		"erp_document_transition_total",
		metric.WithDescription("Total number of workflow transitions"),
		metric.WithUnit("{transitions}"),
	)
	if err != nil {
		return nil, err
	}

	bm.conversionsTotal, err = meter.Int64Counter(
		"erp_document_conversion_total",
		metric.WithDescription("Total number of document conversions"),
		metric.WithUnit("{conversions}"),
	)
	if err != nil {
		return nil, err
	}

	bm.paymentsTotal, err = meter.Int64Counter(
		"erp_payment_total",
		metric.WithDescription("Total number of settlements applied to invoices"),
		metric.WithUnit("{payments}"),
	)
	if err != nil {
		return nil, err
	}

	bm.paymentAmount, err = meter.Float64Counter(
		"erp_payment_amount_total",
		metric.WithDescription("Total settled amount"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordDocumentCreated records a document creation with its amount
func (bm *BusinessMetrics) RecordDocumentCreated(ctx context.Context, docType document.Type, amount decimal.Decimal) {
	attrs := metric.WithAttributes(attribute.String("document_type", string(docType)))
	bm.documentsCreated.Add(ctx, 1, attrs)
	amt, _ := amount.Float64()
	bm.documentAmount.Add(ctx, amt, attrs)
}

// RecordTransition records a workflow transition
func (bm *BusinessMetrics) RecordTransition(ctx context.Context, docType document.Type, action document.Action, to document.Status) {
	bm.transitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("document_type", string(docType)),
		attribute.String("action", string(action)),
		attribute.String("to_status", string(to)),
	))
}

// RecordConversion records a source to target conversion
func (bm *BusinessMetrics) RecordConversion(ctx context.Context, source, target document.Type) {
	bm.conversionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source_type", string(source)),
		attribute.String("target_type", string(target)),
	))
}

// RecordPayment records a settlement against an invoice
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, docType document.Type, amount decimal.Decimal) {
	attrs := metric.WithAttributes(attribute.String("document_type", string(docType)))
	bm.paymentsTotal.Add(ctx, 1, attrs)
	amt, _ := amount.Float64()
	bm.paymentAmount.Add(ctx, amt, attrs)
}
