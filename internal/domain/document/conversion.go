package document

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// conversionRule describes one legal source -> target edge of the
// conversion graph. The rollup kind names the counter the conversion
// consumes on the source lines; sourceStatuses lists the source states
// the conversion is allowed from.
type conversionRule struct {
	kind           ConsumptionKind
	sourceStatuses []Status
}

var conversions = map[Type]map[Type]conversionRule{
	TypeRequisition: {
		TypeRFQ: {kind: KindConverted, sourceStatuses: []Status{StatusApproved}},
	},
	TypeRFQ: {
		TypeQuotation: {kind: KindConverted, sourceStatuses: []Status{StatusSent}},
	},
	TypeQuotation: {
		TypePurchaseOrder: {kind: KindConverted, sourceStatuses: []Status{StatusApproved}},
		TypeSalesOrder:    {kind: KindConverted, sourceStatuses: []Status{StatusApproved}},
	},
	TypePurchaseOrder: {
		TypeGoodsReceipt: {kind: KindReceived, sourceStatuses: []Status{StatusApproved, StatusSent}},
		TypeAPInvoice:    {kind: KindInvoiced, sourceStatuses: []Status{StatusApproved, StatusSent, StatusCompleted}},
	},
	TypeSalesOrder: {
		TypeDelivery: {kind: KindDelivered, sourceStatuses: []Status{StatusApproved, StatusSent}},
	},
	TypeDelivery: {
		TypeARInvoice:   {kind: KindInvoiced, sourceStatuses: []Status{StatusCompleted}},
		TypeReturnOrder: {kind: KindReturned, sourceStatuses: []Status{StatusCompleted}},
	},
	TypeReturnOrder: {
		TypeGoodsReceipt: {kind: KindConverted, sourceStatuses: []Status{StatusApproved}},
	},
	TypeARInvoice: {
		TypeCreditNote: {kind: KindConverted, sourceStatuses: []Status{StatusUnpaid, StatusPartiallyPaid, StatusPaid}},
	},
}

// CanConvert reports whether the source type has a conversion edge to the
// target type
func CanConvert(source, target Type) bool {
	_, ok := conversions[source][target]
	return ok
}

// ConversionKind returns the rollup counter a source -> target conversion
// consumes
func ConversionKind(source, target Type) (ConsumptionKind, bool) {
	rule, ok := conversions[source][target]
	return rule.kind, ok
}

// ConversionTargets returns the target types a source type can convert to
func ConversionTargets(source Type) []Type {
	targets := make([]Type, 0, len(conversions[source]))
	for target := range conversions[source] {
		targets = append(targets, target)
	}
	return targets
}

// LineSelection requests a partial quantity from one source line. A nil
// selection converts every remaining quantity.
type LineSelection struct {
	LineID   uuid.UUID
	Quantity decimal.Decimal
}

// Convert builds a downstream document from the source's remaining
// quantities and consumes the matching rollup counters on the source
// lines. The caller persists both documents in one transaction.
func Convert(source *Document, target Type, number string, selections []LineSelection, actorID uuid.UUID) (*Document, error) {
	rule, ok := conversions[source.Type][target]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot convert %s to %s", source.Type, target))
	}
	if !statusAllowed(source.Status, rule.sourceStatuses) {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot convert %s %s in %s status", source.Type, source.Number, source.Status))
	}

	picks, err := resolveSelections(source, rule.kind, selections)
	if err != nil {
		return nil, err
	}
	if len(picks) == 0 {
		return nil, shared.NewDomainError(shared.CodeNothingToConvert,
			fmt.Sprintf("%s %s has no remaining quantity to convert", source.Type, source.Number))
	}

	doc, err := New(target, number, source.PartyID, source.PartyName, actorID)
	if err != nil {
		return nil, err
	}
	doc.ParentID = &source.ID

	total := decimal.Zero
	for _, pick := range picks {
		line, err := NewLine(doc.ID, pick.src.ProductID, pick.src.Description, pick.qty, pick.src.UnitPrice, pick.src.Discount(), pick.src.TaxRate)
		if err != nil {
			return nil, err
		}
		upstreamID := pick.src.ID
		line.UpstreamLineID = &upstreamID
		doc.Lines = append(doc.Lines, *line)
		total = total.Add(pick.qty)
	}
	if err := doc.rederive(); err != nil {
		return nil, err
	}

	// Consume the source counters only after the target is fully built,
	// so a failed build leaves the source untouched
	for _, pick := range picks {
		if err := pick.src.AddConsumed(rule.kind, pick.qty); err != nil {
			return nil, err
		}
	}
	source.AddDomainEvent(NewDocumentConvertedEvent(source, doc, total, actorID))

	return doc, nil
}

type linePick struct {
	src *Line
	qty decimal.Decimal
}

// resolveSelections maps the requested selections onto source lines. With
// no explicit selection every line's full remaining quantity is taken;
// lines with nothing remaining are skipped.
func resolveSelections(source *Document, kind ConsumptionKind, selections []LineSelection) ([]linePick, error) {
	if len(selections) == 0 {
		var picks []linePick
		for i := range source.Lines {
			remaining := source.Lines[i].Remaining(kind)
			if remaining.GreaterThan(decimal.Zero) {
				picks = append(picks, linePick{src: &source.Lines[i], qty: remaining})
			}
		}
		return picks, nil
	}

	picks := make([]linePick, 0, len(selections))
	seen := make(map[uuid.UUID]bool, len(selections))
	for _, sel := range selections {
		if seen[sel.LineID] {
			return nil, shared.NewDomainError(shared.CodeValidationFailed,
				fmt.Sprintf("Line %s selected more than once", sel.LineID))
		}
		seen[sel.LineID] = true

		line := source.GetLine(sel.LineID)
		if line == nil {
			return nil, shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("Line %s not found on %s %s", sel.LineID, source.Type, source.Number))
		}
		if sel.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError(shared.CodeValidationFailed, "Selected quantity must be positive")
		}
		if sel.Quantity.GreaterThan(line.Remaining(kind)) {
			return nil, shared.NewDomainError(shared.CodeOverConsumption,
				fmt.Sprintf("Selected quantity %s exceeds remaining %s on line %s",
					sel.Quantity.String(), line.Remaining(kind).String(), sel.LineID))
		}
		picks = append(picks, linePick{src: line, qty: sel.Quantity})
	}
	return picks, nil
}

func statusAllowed(status Status, allowed []Status) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}
