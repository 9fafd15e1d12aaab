package document

import (
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/derive"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is an itemized entry within a document. Lines created by a
// conversion carry an UpstreamLineID and count against the upstream line's
// quantity through the rollup counters.
type Line struct {
	ID           uuid.UUID           `gorm:"type:uuid;primary_key"`
	DocumentID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProductID    *uuid.UUID          `gorm:"type:uuid;index"` // nil for free-text manual lines
	Description  string              `gorm:"type:varchar(500);not null"`
	Quantity     decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	DiscountKind derive.DiscountKind `gorm:"type:varchar(10);not null;default:'NONE'"`
	DiscountVal  decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate      decimal.Decimal     `gorm:"type:decimal(8,4);not null;default:0"`
	LineTotal    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`

	UpstreamLineID *uuid.UUID `gorm:"type:uuid;index"`

	// Rollup counters: how much of this line's quantity downstream
	// documents have consumed. Each stays within [0, Quantity].
	ConvertedQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedQty  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DeliveredQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	InvoicedQty  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReturnedQty  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Line) TableName() string {
	return "document_lines"
}

// NewLine creates a line for a document
func NewLine(documentID uuid.UUID, productID *uuid.UUID, description string, quantity, unitPrice decimal.Decimal, discount derive.Discount, taxRate decimal.Decimal) (*Line, error) {
	if productID == nil && description == "" {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Line needs a product or a description")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Unit price cannot be negative")
	}
	if taxRate.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Tax rate cannot be negative")
	}
	if discount.Value.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Discount cannot be negative")
	}

	now := time.Now()
	return &Line{
		ID:           uuid.New(),
		DocumentID:   documentID,
		ProductID:    productID,
		Description:  description,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		DiscountKind: discount.Kind,
		DiscountVal:  discount.Value,
		TaxRate:      taxRate,
		LineTotal:    decimal.Zero,
		ConvertedQty: decimal.Zero,
		ReceivedQty:  decimal.Zero,
		DeliveredQty: decimal.Zero,
		InvoicedQty:  decimal.Zero,
		ReturnedQty:  decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Discount returns the line discount as a derive value
func (l *Line) Discount() derive.Discount {
	return derive.Discount{Kind: l.DiscountKind, Value: l.DiscountVal}
}

// DeriveInput returns the line's derivation input
func (l *Line) DeriveInput() derive.LineInput {
	return derive.LineInput{
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		Discount:  l.Discount(),
		TaxRate:   l.TaxRate,
	}
}

// Consumed returns the counter value for the given kind
func (l *Line) Consumed(kind ConsumptionKind) decimal.Decimal {
	switch kind {
	case KindConverted:
		return l.ConvertedQty
	case KindReceived:
		return l.ReceivedQty
	case KindDelivered:
		return l.DeliveredQty
	case KindInvoiced:
		return l.InvoicedQty
	case KindReturned:
		return l.ReturnedQty
	}
	return decimal.Zero
}

// Remaining returns the unconsumed quantity for the given kind, floored at zero
func (l *Line) Remaining(kind ConsumptionKind) decimal.Decimal {
	remaining := l.Quantity.Sub(l.Consumed(kind))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// HasAnyConsumption returns true if any rollup counter is non-zero
func (l *Line) HasAnyConsumption() bool {
	for _, kind := range []ConsumptionKind{KindConverted, KindReceived, KindDelivered, KindInvoiced, KindReturned} {
		if l.Consumed(kind).GreaterThan(decimal.Zero) {
			return true
		}
	}
	return false
}

// AddConsumed increments the counter for the given kind.
// Fails if the new total would exceed the line quantity.
func (l *Line) AddConsumed(kind ConsumptionKind, delta decimal.Decimal) error {
	if delta.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeValidationFailed, "Consumption delta must be positive")
	}
	newTotal := l.Consumed(kind).Add(delta)
	if newTotal.GreaterThan(l.Quantity) {
		return shared.NewDomainError(shared.CodeOverConsumption,
			fmt.Sprintf("Cannot consume %s %s, only %s of %s remain", delta.String(), kind, l.Remaining(kind).String(), l.Quantity.String()))
	}
	l.setConsumed(kind, newTotal)
	l.UpdatedAt = time.Now()
	return nil
}

// ReleaseConsumed decrements the counter for the given kind.
// Fails if the counter would go negative.
func (l *Line) ReleaseConsumed(kind ConsumptionKind, delta decimal.Decimal) error {
	if delta.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeValidationFailed, "Release delta must be positive")
	}
	newTotal := l.Consumed(kind).Sub(delta)
	if newTotal.IsNegative() {
		return shared.NewDomainError(shared.CodeUnderConsumption,
			fmt.Sprintf("Cannot release %s %s, only %s consumed", delta.String(), kind, l.Consumed(kind).String()))
	}
	l.setConsumed(kind, newTotal)
	l.UpdatedAt = time.Now()
	return nil
}

func (l *Line) setConsumed(kind ConsumptionKind, total decimal.Decimal) {
	switch kind {
	case KindConverted:
		l.ConvertedQty = total
	case KindReceived:
		l.ReceivedQty = total
	case KindDelivered:
		l.DeliveredQty = total
	case KindInvoiced:
		l.InvoicedQty = total
	case KindReturned:
		l.ReturnedQty = total
	}
}

// UpdateQuantity changes the ordered quantity. Not allowed below what
// downstream documents have already consumed.
func (l *Line) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeValidationFailed, "Quantity must be positive")
	}
	for _, kind := range []ConsumptionKind{KindConverted, KindReceived, KindDelivered, KindInvoiced, KindReturned} {
		if quantity.LessThan(l.Consumed(kind)) {
			return shared.NewDomainError(shared.CodeValidationFailed,
				fmt.Sprintf("Quantity cannot drop below the %s amount already consumed", kind))
		}
	}
	l.Quantity = quantity
	l.UpdatedAt = time.Now()
	return nil
}

// UpdateUnitPrice changes the unit price
func (l *Line) UpdateUnitPrice(unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return shared.NewDomainError(shared.CodeValidationFailed, "Unit price cannot be negative")
	}
	l.UnitPrice = unitPrice
	l.UpdatedAt = time.Now()
	return nil
}
