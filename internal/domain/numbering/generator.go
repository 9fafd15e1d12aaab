package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/shared"
)

// Numbers look like PO-2026-000042: a type prefix, the calendar year the
// sequence is scoped to, and a zero-padded counter. Counters restart at 1
// each year; a number is never reused even when its document is cancelled.

const sequenceWidth = 6

var maxSequence int64 = 999999

var prefixes = map[document.Type]string{
	document.TypeRequisition:   "REQ",
	document.TypeRFQ:           "RFQ",
	document.TypeQuotation:     "QUO",
	document.TypePurchaseOrder: "PO",
	document.TypeGoodsReceipt:  "GR",
	document.TypeSalesOrder:    "SO",
	document.TypeDelivery:      "DLV",
	document.TypeARInvoice:     "INV",
	document.TypeAPInvoice:     "BILL",
	document.TypeReturnOrder:   "RET",
	document.TypeCreditNote:    "CN",
}

// Prefix returns the number prefix for a document type
func Prefix(t document.Type) (string, bool) {
	p, ok := prefixes[t]
	return p, ok
}

// SequenceRepository hands out strictly increasing counter values per
// scope. Next must be atomic under concurrent callers; two calls never see
// the same value.
type SequenceRepository interface {
	Next(ctx context.Context, scope string) (int64, error)

	// Current returns the last issued value for a scope, zero if none
	Current(ctx context.Context, scope string) (int64, error)
}

// Generator issues business document numbers
type Generator struct {
	sequences SequenceRepository
	now       func() time.Time
}

// NewGenerator creates a number generator
func NewGenerator(sequences SequenceRepository) *Generator {
	return &Generator{sequences: sequences, now: time.Now}
}

// Next issues the next number for a document type in the current year
func (g *Generator) Next(ctx context.Context, docType document.Type) (string, error) {
	prefix, ok := prefixes[docType]
	if !ok {
		return "", shared.NewDomainError(shared.CodeValidationFailed,
			fmt.Sprintf("No number prefix for document type %q", docType))
	}

	year := g.now().Year()
	seq, err := g.sequences.Next(ctx, scopeFor(prefix, year))
	if err != nil {
		return "", err
	}
	if seq > maxSequence {
		return "", shared.NewDomainError(shared.CodeGenerationExhausted,
			fmt.Sprintf("Number sequence %s-%d is exhausted", prefix, year))
	}

	return fmt.Sprintf("%s-%d-%0*d", prefix, year, sequenceWidth, seq), nil
}

func scopeFor(prefix string, year int) string {
	return fmt.Sprintf("%s-%d", prefix, year)
}
