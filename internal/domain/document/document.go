package document

import (
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/derive"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is the aggregate root for every business record with a
// lifecycle: requisitions, orders, receipts, deliveries, invoices, return
// orders and credit notes. Cross-document references are plain foreign
// keys (ParentID, Line.UpstreamLineID), never embedded object graphs.
type Document struct {
	shared.AuditedAggregateRoot
	Number    string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_documents_type_number,priority:2"`
	Type      Type       `gorm:"type:varchar(20);not null;uniqueIndex:idx_documents_type_number,priority:1"`
	Status    Status     `gorm:"type:varchar(20);not null"`
	PartyID   uuid.UUID  `gorm:"type:uuid;not null;index"` // vendor or customer
	PartyName string     `gorm:"type:varchar(200);not null"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index"` // document this one was converted from

	Lines []Line `gorm:"foreignKey:DocumentID;references:ID"`

	HeaderDiscountKind derive.DiscountKind `gorm:"type:varchar(10);not null;default:'NONE'"`
	HeaderDiscountVal  decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	HeaderDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // resolved amount
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // invoices only

	// Sub-state for return orders: the inbound receipt of returned goods
	GoodsReceiptStatus GoodsReceiptState `gorm:"type:varchar(20);not null;default:'NONE'"`

	Notes        string     `gorm:"type:text"`
	ApprovedBy   *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt   *time.Time
	PostedAt     *time.Time
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// New creates a document in its type's initial status
func New(docType Type, number string, partyID uuid.UUID, partyName string, createdBy uuid.UUID) (*Document, error) {
	if !docType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, fmt.Sprintf("Unknown document type %q", docType))
	}
	if number == "" {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Document number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Document number cannot exceed 50 characters")
	}
	if partyID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Party ID cannot be empty")
	}
	if partyName == "" {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Party name cannot be empty")
	}

	doc := &Document{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		Number:               number,
		Type:                 docType,
		Status:               InitialStatus(docType),
		PartyID:              partyID,
		PartyName:            partyName,
		Lines:                make([]Line, 0),
		HeaderDiscountKind:   derive.DiscountNone,
		HeaderDiscountVal:    decimal.Zero,
		Subtotal:             decimal.Zero,
		HeaderDiscount:       decimal.Zero,
		TaxAmount:            decimal.Zero,
		TotalAmount:          decimal.Zero,
		BalanceAmount:        decimal.Zero,
		GoodsReceiptStatus:   GoodsReceiptNone,
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc, createdBy))

	return doc, nil
}

// CanModify returns true while direct edits are still allowed: only before
// the document leaves its initial state, and never once a downstream
// document has consumed any of its lines.
func (d *Document) CanModify() bool {
	if d.Status != InitialStatus(d.Type) {
		return false
	}
	for i := range d.Lines {
		if d.Lines[i].HasAnyConsumption() {
			return false
		}
	}
	return true
}

// AddLine appends a line. Only allowed while the document is modifiable.
func (d *Document) AddLine(productID *uuid.UUID, description string, quantity, unitPrice decimal.Decimal, discount derive.Discount, taxRate decimal.Decimal) (*Line, error) {
	if !d.CanModify() {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot add lines to a %s in %s status", d.Type, d.Status))
	}

	line, err := NewLine(d.ID, productID, description, quantity, unitPrice, discount, taxRate)
	if err != nil {
		return nil, err
	}

	d.Lines = append(d.Lines, *line)
	if err := d.rederive(); err != nil {
		d.Lines = d.Lines[:len(d.Lines)-1]
		return nil, err
	}
	d.UpdatedAt = time.Now()
	return line, nil
}

// UpdateLineQuantity changes a line's quantity and rederives totals
func (d *Document) UpdateLineQuantity(lineID uuid.UUID, quantity decimal.Decimal) error {
	if !d.CanModify() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot update lines of a %s in %s status", d.Type, d.Status))
	}
	line := d.GetLine(lineID)
	if line == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Document line not found")
	}
	if err := line.UpdateQuantity(quantity); err != nil {
		return err
	}
	if err := d.rederive(); err != nil {
		return err
	}
	d.UpdatedAt = time.Now()
	return nil
}

// UpdateLinePrice changes a line's unit price and rederives totals
func (d *Document) UpdateLinePrice(lineID uuid.UUID, unitPrice decimal.Decimal) error {
	if !d.CanModify() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot update lines of a %s in %s status", d.Type, d.Status))
	}
	line := d.GetLine(lineID)
	if line == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Document line not found")
	}
	if err := line.UpdateUnitPrice(unitPrice); err != nil {
		return err
	}
	if err := d.rederive(); err != nil {
		return err
	}
	d.UpdatedAt = time.Now()
	return nil
}

// RemoveLine removes a line and rederives totals
func (d *Document) RemoveLine(lineID uuid.UUID) error {
	if !d.CanModify() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot remove lines from a %s in %s status", d.Type, d.Status))
	}
	for idx := range d.Lines {
		if d.Lines[idx].ID == lineID {
			d.Lines = append(d.Lines[:idx], d.Lines[idx+1:]...)
			if err := d.rederive(); err != nil {
				return err
			}
			d.UpdatedAt = time.Now()
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, "Document line not found")
}

// SetHeaderDiscount sets the document-level discount and rederives totals
func (d *Document) SetHeaderDiscount(discount derive.Discount) error {
	if !d.CanModify() {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot change discount of a %s in %s status", d.Type, d.Status))
	}
	prevKind, prevVal := d.HeaderDiscountKind, d.HeaderDiscountVal
	d.HeaderDiscountKind = discount.Kind
	d.HeaderDiscountVal = discount.Value
	if err := d.rederive(); err != nil {
		d.HeaderDiscountKind, d.HeaderDiscountVal = prevKind, prevVal
		return err
	}
	d.UpdatedAt = time.Now()
	return nil
}

// SetNotes sets the free-text notes
func (d *Document) SetNotes(notes string) {
	d.Notes = notes
	d.UpdatedAt = time.Now()
}

// rederive recomputes totals from the lines and applies the resulting
// value object
func (d *Document) rederive() error {
	inputs := make([]derive.LineInput, len(d.Lines))
	for i := range d.Lines {
		inputs[i] = d.Lines[i].DeriveInput()
	}
	totals, err := derive.Document(derive.DocumentInput{
		Lines:          inputs,
		HeaderDiscount: derive.Discount{Kind: d.HeaderDiscountKind, Value: d.HeaderDiscountVal},
	})
	if err != nil {
		return err
	}
	d.ApplyTotals(totals)
	return nil
}

// ApplyTotals copies a derived totals value object onto the document.
// For invoices the balance tracks the total until payments are applied.
func (d *Document) ApplyTotals(totals derive.DocumentTotals) {
	d.Subtotal = totals.Subtotal
	d.HeaderDiscount = totals.HeaderDiscount
	d.TaxAmount = totals.TaxAmount
	d.TotalAmount = totals.GrandTotal
	for i := range totals.Lines {
		if i < len(d.Lines) {
			d.Lines[i].LineTotal = totals.Lines[i].NetAmount.Add(totals.Lines[i].TaxAmount)
		}
	}
	if d.Type.IsInvoice() && d.Status == InitialStatus(d.Type) {
		d.BalanceAmount = d.TotalAmount
	}
}

// ApplyPayment reduces the invoice balance and moves the status along the
// payment edges. A payment larger than the remaining balance is rejected.
func (d *Document) ApplyPayment(amount decimal.Decimal, actorID uuid.UUID) error {
	return d.applySettlement(amount, actorID, false)
}

// ApplyCredit reduces an AR invoice balance by an applied credit note
// amount. Structurally a payment, tracked separately by the balance
// ledger.
func (d *Document) ApplyCredit(amount decimal.Decimal, actorID uuid.UUID) error {
	if d.Type != TypeARInvoice {
		return shared.NewDomainError(shared.CodeValidationFailed, "Credit notes apply to receivable invoices only")
	}
	return d.applySettlement(amount, actorID, true)
}

func (d *Document) applySettlement(amount decimal.Decimal, actorID uuid.UUID, credit bool) error {
	if !d.Type.IsInvoice() {
		return shared.NewDomainError(shared.CodeValidationFailed,
			fmt.Sprintf("Cannot settle a %s", d.Type))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeValidationFailed, "Amount must be positive")
	}
	if _, ok := paymentEdges[d.Status]; !ok {
		return invalidTransition(d, ActionPay)
	}
	if amount.GreaterThan(d.BalanceAmount) {
		return shared.NewDomainError(shared.CodeOverPayment,
			fmt.Sprintf("Amount %s exceeds remaining balance %s", amount.StringFixed(2), d.BalanceAmount.StringFixed(2)))
	}

	newBalance := d.BalanceAmount.Sub(amount)
	target := StatusPartiallyPaid
	if newBalance.IsZero() {
		target = StatusPaid
	}
	if !canPaymentTransition(d.Status, target) {
		return invalidTransition(d, ActionPay)
	}

	from := d.Status
	d.BalanceAmount = newBalance
	d.Status = target
	d.StampUpdatedBy(actorID)
	d.UpdatedAt = time.Now()

	if credit {
		d.AddDomainEvent(NewCreditAppliedEvent(d, amount, actorID, from))
	} else {
		d.AddDomainEvent(NewPaymentAppliedEvent(d, amount, actorID, from))
	}

	return nil
}

// SetGoodsReceiptStatus advances the return order's inbound receipt
// sub-state (None -> Pending -> Completed)
func (d *Document) SetGoodsReceiptStatus(state GoodsReceiptState) error {
	if d.Type != TypeReturnOrder {
		return shared.NewDomainError(shared.CodeValidationFailed, "Goods receipt status applies to return orders only")
	}
	valid := map[GoodsReceiptState]GoodsReceiptState{
		GoodsReceiptNone:    GoodsReceiptPending,
		GoodsReceiptPending: GoodsReceiptCompleted,
	}
	if next, ok := valid[d.GoodsReceiptStatus]; !ok || next != state {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Goods receipt status cannot move from %s to %s", d.GoodsReceiptStatus, state))
	}
	d.GoodsReceiptStatus = state
	d.UpdatedAt = time.Now()
	return nil
}

// ResetGoodsReceiptStatus clears a pending inbound sub-state after the
// receipt it was waiting for is cancelled, so a replacement receipt can be
// issued
func (d *Document) ResetGoodsReceiptStatus() error {
	if d.Type != TypeReturnOrder {
		return shared.NewDomainError(shared.CodeValidationFailed, "Goods receipt status applies to return orders only")
	}
	if d.GoodsReceiptStatus != GoodsReceiptPending {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Goods receipt status cannot reset from %s", d.GoodsReceiptStatus))
	}
	d.GoodsReceiptStatus = GoodsReceiptNone
	d.UpdatedAt = time.Now()
	return nil
}

// MarkCreditNoteApplied consumes a posted credit note. A credit note
// settles an invoice exactly once; APPLIED is terminal.
func (d *Document) MarkCreditNoteApplied(actorID uuid.UUID) error {
	if d.Type != TypeCreditNote {
		return shared.NewDomainError(shared.CodeValidationFailed,
			fmt.Sprintf("%s %s is not a credit note", d.Type, d.Number))
	}
	if d.Status != StatusCompleted {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Credit note %s must be posted before it can be applied", d.Number))
	}
	d.Status = StatusApplied
	d.StampUpdatedBy(actorID)
	d.UpdatedAt = time.Now()
	return nil
}

// GetLine returns a line by its ID
func (d *Document) GetLine(lineID uuid.UUID) *Line {
	for idx := range d.Lines {
		if d.Lines[idx].ID == lineID {
			return &d.Lines[idx]
		}
	}
	return nil
}

// GetLineByUpstream returns the line referencing the given upstream line
func (d *Document) GetLineByUpstream(upstreamLineID uuid.UUID) *Line {
	for idx := range d.Lines {
		if d.Lines[idx].UpstreamLineID != nil && *d.Lines[idx].UpstreamLineID == upstreamLineID {
			return &d.Lines[idx]
		}
	}
	return nil
}

// IsTerminal returns true if the document can no longer change state
func (d *Document) IsTerminal() bool {
	return d.Status.IsTerminal()
}

// LineCount returns the number of lines
func (d *Document) LineCount() int {
	return len(d.Lines)
}
