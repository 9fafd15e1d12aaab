package workflow

import (
	"time"

	"github.com/erp/backoffice/internal/domain/derive"
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Document DTOs ====================

// CreateDocumentRequest represents a request to create a document
type CreateDocumentRequest struct {
	Type      document.Type     `json:"type" binding:"required,documenttype"`
	PartyID   uuid.UUID         `json:"party_id" binding:"required"`
	PartyName string            `json:"party_name" binding:"required,min=1,max=200"`
	Lines     []CreateLineInput `json:"lines"`
	Discount  *DiscountInput    `json:"discount"`
	Notes     string            `json:"notes"`
	ActorID   uuid.UUID         `json:"-"`
}

// CreateLineInput represents one line in a create request. Description,
// unit price and tax rate may be omitted when a product is named; the
// catalog fills them in.
type CreateLineInput struct {
	ProductID   *uuid.UUID       `json:"product_id"`
	Description string           `json:"description" binding:"max=500"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Discount    *DiscountInput   `json:"discount"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
}

// DiscountInput represents a percent or flat amount discount
type DiscountInput struct {
	Kind  derive.DiscountKind `json:"kind" binding:"required,oneof=NONE PERCENT AMOUNT"`
	Value decimal.Decimal     `json:"value"`
}

func (d *DiscountInput) toDiscount() derive.Discount {
	if d == nil {
		return derive.NoDiscount()
	}
	return derive.Discount{Kind: d.Kind, Value: d.Value}
}

// AddLineRequest represents a request to add a line to a document
type AddLineRequest struct {
	ProductID   *uuid.UUID       `json:"product_id"`
	Description string           `json:"description" binding:"max=500"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Discount    *DiscountInput   `json:"discount"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
	ActorID     uuid.UUID        `json:"-"`
}

// UpdateLineRequest represents a request to update a document line
type UpdateLineRequest struct {
	Quantity  *decimal.Decimal `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	ActorID   uuid.UUID        `json:"-"`
}

// TransitionRequest represents a workflow action on a document
type TransitionRequest struct {
	Action  document.Action `json:"action" binding:"required,documentaction"`
	Reason  string          `json:"reason" binding:"max=500"`
	ActorID uuid.UUID       `json:"-"`
}

// ConvertRequest represents a request to convert a document downstream
type ConvertRequest struct {
	TargetType document.Type      `json:"target_type" binding:"required,documenttype"`
	Lines      []ConvertLineInput `json:"lines"`
	ActorID    uuid.UUID          `json:"-"`
}

// ConvertLineInput selects a partial quantity from one source line
type ConvertLineInput struct {
	LineID   uuid.UUID       `json:"line_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ApplyPaymentRequest represents a payment against an invoice
type ApplyPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	IdempotencyKey string          `json:"idempotency_key" binding:"max=100"`
	ActorID        uuid.UUID       `json:"-"`
}

// ApplyCreditRequest applies a posted credit note against an AR invoice
type ApplyCreditRequest struct {
	CreditNoteID uuid.UUID `json:"credit_note_id" binding:"required"`
	ActorID      uuid.UUID `json:"-"`
}

// ListDocumentsRequest narrows a document listing
type ListDocumentsRequest struct {
	Type     *document.Type   `form:"type"`
	Status   *document.Status `form:"status"`
	PartyID  *uuid.UUID       `form:"party_id"`
	Search   string           `form:"search"`
	Page     int              `form:"page"`
	PageSize int              `form:"page_size"`
}

// ==================== Responses ====================

// LineResponse represents a document line in API responses
type LineResponse struct {
	ID             uuid.UUID           `json:"id"`
	ProductID      *uuid.UUID          `json:"product_id,omitempty"`
	Description    string              `json:"description"`
	Quantity       decimal.Decimal     `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	DiscountKind   derive.DiscountKind `json:"discount_kind"`
	DiscountValue  decimal.Decimal     `json:"discount_value"`
	TaxRate        decimal.Decimal     `json:"tax_rate"`
	LineTotal      decimal.Decimal     `json:"line_total"`
	UpstreamLineID *uuid.UUID          `json:"upstream_line_id,omitempty"`
	ConvertedQty   decimal.Decimal     `json:"converted_qty"`
	ReceivedQty    decimal.Decimal     `json:"received_qty"`
	DeliveredQty   decimal.Decimal     `json:"delivered_qty"`
	InvoicedQty    decimal.Decimal     `json:"invoiced_qty"`
	ReturnedQty    decimal.Decimal     `json:"returned_qty"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Number             string            `json:"number"`
	Type               document.Type     `json:"type"`
	Status             document.Status   `json:"status"`
	PartyID            uuid.UUID         `json:"party_id"`
	PartyName          string            `json:"party_name"`
	ParentID           *uuid.UUID        `json:"parent_id,omitempty"`
	Lines              []LineResponse    `json:"lines"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	HeaderDiscount     decimal.Decimal   `json:"header_discount"`
	TaxAmount          decimal.Decimal   `json:"tax_amount"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	BalanceAmount      decimal.Decimal   `json:"balance_amount"`
	GoodsReceiptStatus string            `json:"goods_receipt_status,omitempty"`
	AllowedActions     []document.Action `json:"allowed_actions"`
	Notes              string            `json:"notes,omitempty"`
	CancelReason       string            `json:"cancel_reason,omitempty"`
	Version            int               `json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// ConvertResponse returns both sides of a conversion
type ConvertResponse struct {
	Source DocumentResponse `json:"source"`
	Target DocumentResponse `json:"target"`
}

// ToLineResponse converts a domain line to a response DTO
func ToLineResponse(l *document.Line) LineResponse {
	return LineResponse{
		ID:             l.ID,
		ProductID:      l.ProductID,
		Description:    l.Description,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		DiscountKind:   l.DiscountKind,
		DiscountValue:  l.DiscountVal,
		TaxRate:        l.TaxRate,
		LineTotal:      l.LineTotal,
		UpstreamLineID: l.UpstreamLineID,
		ConvertedQty:   l.ConvertedQty,
		ReceivedQty:    l.ReceivedQty,
		DeliveredQty:   l.DeliveredQty,
		InvoicedQty:    l.InvoicedQty,
		ReturnedQty:    l.ReturnedQty,
	}
}

// ToDocumentResponse converts a domain document to a response DTO
func ToDocumentResponse(d *document.Document) DocumentResponse {
	lines := make([]LineResponse, len(d.Lines))
	for i := range d.Lines {
		lines[i] = ToLineResponse(&d.Lines[i])
	}

	resp := DocumentResponse{
		ID:             d.ID,
		Number:         d.Number,
		Type:           d.Type,
		Status:         d.Status,
		PartyID:        d.PartyID,
		PartyName:      d.PartyName,
		ParentID:       d.ParentID,
		Lines:          lines,
		Subtotal:       d.Subtotal,
		HeaderDiscount: d.HeaderDiscount,
		TaxAmount:      d.TaxAmount,
		TotalAmount:    d.TotalAmount,
		BalanceAmount:  d.BalanceAmount,
		AllowedActions: document.AllowedActions(d.Type, d.Status),
		Notes:          d.Notes,
		CancelReason:   d.CancelReason,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.Type == document.TypeReturnOrder {
		resp.GoodsReceiptStatus = string(d.GoodsReceiptStatus)
	}
	return resp
}
