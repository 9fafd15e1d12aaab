// Package derive computes line and document totals for business documents.
// It is pure: no I/O, no clock, deterministic for identical inputs.
//
// All monetary rounding is half-up to two decimal places and happens at the
// line level first; document totals are sums of already-rounded line values.
// Summing before rounding produces off-by-one-cent mismatches against the
// line-level figures shown to users, so it is deliberately not used.
package derive

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DiscountKind discriminates how a discount value is expressed
type DiscountKind string

const (
	DiscountNone    DiscountKind = "NONE"
	DiscountPercent DiscountKind = "PERCENT"
	DiscountAmount  DiscountKind = "AMOUNT"
)

// Discount is a percent- or amount-expressed reduction
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// NoDiscount returns an empty discount
func NoDiscount() Discount {
	return Discount{Kind: DiscountNone, Value: decimal.Zero}
}

// PercentDiscount returns a percent-expressed discount (15 means 15%)
func PercentDiscount(pct decimal.Decimal) Discount {
	return Discount{Kind: DiscountPercent, Value: pct}
}

// AmountDiscount returns a flat-amount discount
func AmountDiscount(amount decimal.Decimal) Discount {
	return Discount{Kind: DiscountAmount, Value: amount}
}

// amountOn resolves the discount against a base amount (before rounding)
func (d Discount) amountOn(base decimal.Decimal) decimal.Decimal {
	switch d.Kind {
	case DiscountPercent:
		return valueobject.Percent(base, d.Value)
	case DiscountAmount:
		return d.Value
	default:
		return decimal.Zero
	}
}

// LineInput is the raw material for one line's totals
type LineInput struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  Discount
	TaxRate   decimal.Decimal // percent, e.g. 10 for 10%
}

// DocumentInput is the raw material for a document's totals
type DocumentInput struct {
	Lines          []LineInput
	HeaderDiscount Discount // applies after line discounts, before tax
}

// LineTotals is the derived result for one line
type LineTotals struct {
	GrossAmount   decimal.Decimal // quantity * unitPrice, unrounded
	NetAmount     decimal.Decimal // gross - line discount, rounded
	TaxableAmount decimal.Decimal // net - allocated header discount, rounded
	TaxAmount     decimal.Decimal // taxable * rate, rounded
	LineTotal     decimal.Decimal // net + tax on the line's own base
}

// DocumentTotals is the derived result for a whole document.
// It is a value object: the workflow engine copies it onto the persisted
// document, callers never mutate it.
type DocumentTotals struct {
	Subtotal       decimal.Decimal // sum of line net amounts
	HeaderDiscount decimal.Decimal // resolved header discount amount
	TaxableBase    decimal.Decimal // subtotal - header discount, floored at 0
	TaxAmount      decimal.Decimal // sum of per-line tax on allocated bases
	GrandTotal     decimal.Decimal // taxable base + tax
	Lines          []LineTotals
}

// Line derives the totals of a single line in isolation:
// net = round2(qty*price - discount), tax = round2(net * rate / 100).
// A percent discount is resolved on qty*price before tax.
func Line(in LineInput) (LineTotals, error) {
	if err := validateLine(in); err != nil {
		return LineTotals{}, err
	}

	gross := in.Quantity.Mul(in.UnitPrice)
	discount := in.Discount.amountOn(gross)
	if discount.GreaterThan(gross) {
		discount = gross
	}
	net := valueobject.RoundHalfUp(gross.Sub(discount))
	tax := valueobject.RoundHalfUp(valueobject.Percent(net, in.TaxRate))

	return LineTotals{
		GrossAmount:   gross,
		NetAmount:     net,
		TaxableAmount: net,
		TaxAmount:     tax,
		LineTotal:     net.Add(tax),
	}, nil
}

// Document derives the full document totals.
//
// The header discount is resolved against the subtotal, floored so the
// taxable base never goes negative, and allocated across lines by value
// share (residual cent lands on the last contributing line so the parts
// always sum to the whole). Tax is then recomputed per line against the
// post-discount base.
func Document(in DocumentInput) (DocumentTotals, error) {
	lines := make([]LineTotals, len(in.Lines))
	subtotal := decimal.Zero
	for i, li := range in.Lines {
		lt, err := Line(li)
		if err != nil {
			return DocumentTotals{}, err
		}
		lines[i] = lt
		subtotal = subtotal.Add(lt.NetAmount)
	}

	headerDiscount := valueobject.RoundHalfUp(in.HeaderDiscount.amountOn(subtotal))
	if headerDiscount.IsNegative() {
		return DocumentTotals{}, shared.NewDomainError(shared.CodeValidationFailed, "Header discount cannot be negative")
	}
	if headerDiscount.GreaterThan(subtotal) {
		headerDiscount = subtotal
	}
	taxableBase := subtotal.Sub(headerDiscount)

	allocateHeaderDiscount(lines, subtotal, headerDiscount)

	taxTotal := decimal.Zero
	for i := range lines {
		lines[i].TaxAmount = valueobject.RoundHalfUp(valueobject.Percent(lines[i].TaxableAmount, in.Lines[i].TaxRate))
		taxTotal = taxTotal.Add(lines[i].TaxAmount)
	}

	return DocumentTotals{
		Subtotal:       subtotal,
		HeaderDiscount: headerDiscount,
		TaxableBase:    taxableBase,
		TaxAmount:      taxTotal,
		GrandTotal:     taxableBase.Add(taxTotal),
		Lines:          lines,
	}, nil
}

// allocateHeaderDiscount spreads the header discount over the lines by
// value share. Every line but the last gets its rounded share; the last
// non-zero line absorbs the residual so the shares sum exactly.
func allocateHeaderDiscount(lines []LineTotals, subtotal, headerDiscount decimal.Decimal) {
	if headerDiscount.IsZero() || subtotal.IsZero() {
		return
	}

	last := -1
	for i := range lines {
		if lines[i].NetAmount.IsPositive() {
			last = i
		}
	}

	allocated := decimal.Zero
	for i := range lines {
		if lines[i].NetAmount.IsZero() {
			continue
		}
		var share decimal.Decimal
		if i == last {
			share = headerDiscount.Sub(allocated)
		} else {
			share = valueobject.RoundHalfUp(headerDiscount.Mul(lines[i].NetAmount).Div(subtotal))
		}
		allocated = allocated.Add(share)
		lines[i].TaxableAmount = lines[i].NetAmount.Sub(share)
	}
}

func validateLine(in LineInput) error {
	if in.Quantity.IsNegative() {
		return shared.NewDomainError(shared.CodeValidationFailed, "Quantity cannot be negative")
	}
	if in.UnitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeValidationFailed, "Unit price cannot be negative")
	}
	if in.TaxRate.IsNegative() {
		return shared.NewDomainError(shared.CodeValidationFailed, "Tax rate cannot be negative")
	}
	if in.Discount.Value.IsNegative() {
		return shared.NewDomainError(shared.CodeValidationFailed, "Discount cannot be negative")
	}
	if in.Discount.Kind == DiscountPercent && in.Discount.Value.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError(shared.CodeValidationFailed, "Percent discount cannot exceed 100")
	}
	return nil
}
