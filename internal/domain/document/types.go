package document

// Type identifies the business document variety. Behavior differences
// between types are table-driven (see machine.go), not subclassed.
type Type string

const (
	TypeRequisition   Type = "REQUISITION"
	TypeRFQ           Type = "RFQ"
	TypeQuotation     Type = "QUOTATION"
	TypePurchaseOrder Type = "PURCHASE_ORDER"
	TypeGoodsReceipt  Type = "GOODS_RECEIPT"
	TypeSalesOrder    Type = "SALES_ORDER"
	TypeDelivery      Type = "DELIVERY"
	TypeARInvoice     Type = "AR_INVOICE"
	TypeAPInvoice     Type = "AP_INVOICE"
	TypeReturnOrder   Type = "RETURN_ORDER"
	TypeCreditNote    Type = "CREDIT_NOTE"
)

// String returns the string representation of the document type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the type is a known document type
func (t Type) IsValid() bool {
	switch t {
	case TypeRequisition, TypeRFQ, TypeQuotation, TypePurchaseOrder,
		TypeGoodsReceipt, TypeSalesOrder, TypeDelivery, TypeARInvoice,
		TypeAPInvoice, TypeReturnOrder, TypeCreditNote:
		return true
	}
	return false
}

// IsInvoice returns true for the two invoice types
func (t Type) IsInvoice() bool {
	return t == TypeARInvoice || t == TypeAPInvoice
}

// IsReceivable returns true for documents on the customer side
func (t Type) IsReceivable() bool {
	switch t {
	case TypeQuotation, TypeSalesOrder, TypeDelivery, TypeARInvoice,
		TypeReturnOrder, TypeCreditNote:
		return true
	}
	return false
}

// Status represents a lifecycle state. The set of statuses a document can
// occupy, and the edges between them, depend on its Type.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusPending       Status = "PENDING"
	StatusApproved      Status = "APPROVED"
	StatusRejected      Status = "REJECTED"
	StatusSent          Status = "SENT"
	StatusCompleted     Status = "COMPLETED"
	StatusCancelled     Status = "CANCELLED"
	StatusUnpaid        Status = "UNPAID"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusApplied       Status = "APPLIED"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for states with no outgoing edges
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusPaid ||
		s == StatusRejected || s == StatusApplied
}

// Action is a workflow verb applied to a document
type Action string

const (
	ActionSubmit   Action = "SUBMIT"
	ActionApprove  Action = "APPROVE"
	ActionReject   Action = "REJECT"
	ActionSend     Action = "SEND"
	ActionPost     Action = "POST"
	ActionComplete Action = "COMPLETE"
	ActionCancel   Action = "CANCEL"
	ActionPay      Action = "PAY"
)

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the action is a known workflow action
func (a Action) IsValid() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionSend,
		ActionPost, ActionComplete, ActionCancel, ActionPay:
		return true
	}
	return false
}

// GoodsReceiptState is the return order's inbound-receipt sub-state.
// A return order cannot complete until the returned goods have been
// received back.
type GoodsReceiptState string

const (
	GoodsReceiptNone      GoodsReceiptState = "NONE"
	GoodsReceiptPending   GoodsReceiptState = "PENDING"
	GoodsReceiptCompleted GoodsReceiptState = "COMPLETED"
)

// ConsumptionKind names the rollup counter a downstream document consumes
// on its upstream lines
type ConsumptionKind string

const (
	KindConverted ConsumptionKind = "CONVERTED"
	KindReceived  ConsumptionKind = "RECEIVED"
	KindDelivered ConsumptionKind = "DELIVERED"
	KindInvoiced  ConsumptionKind = "INVOICED"
	KindReturned  ConsumptionKind = "RETURNED"
)

// String returns the string representation of the consumption kind
func (k ConsumptionKind) String() string {
	return string(k)
}

// IsValid checks if the kind is known
func (k ConsumptionKind) IsValid() bool {
	switch k {
	case KindConverted, KindReceived, KindDelivered, KindInvoiced, KindReturned:
		return true
	}
	return false
}
