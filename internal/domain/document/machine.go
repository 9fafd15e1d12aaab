package document

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// The workflow engine is table-driven: each document type owns a static
// map of {status, action} -> {target, guard}. Terminal states have no
// entries, so they can never be left.

type transitionKey struct {
	from   Status
	action Action
}

type guardFunc func(d *Document, reason string) error

type transitionRule struct {
	to    Status
	guard guardFunc
}

var initialStatuses = map[Type]Status{
	TypeRequisition:   StatusDraft,
	TypeRFQ:           StatusDraft,
	TypeQuotation:     StatusDraft,
	TypePurchaseOrder: StatusPending,
	TypeGoodsReceipt:  StatusDraft,
	TypeSalesOrder:    StatusPending,
	TypeDelivery:      StatusDraft,
	TypeARInvoice:     StatusUnpaid,
	TypeAPInvoice:     StatusUnpaid,
	TypeReturnOrder:   StatusDraft,
	TypeCreditNote:    StatusDraft,
}

var transitions = map[Type]map[transitionKey]transitionRule{
	TypeRequisition: {
		{StatusDraft, ActionSubmit}:     {to: StatusPending},
		{StatusPending, ActionApprove}:  {to: StatusApproved, guard: guardHasLines},
		{StatusPending, ActionReject}:   {to: StatusRejected},
		{StatusApproved, ActionComplete}: {to: StatusCompleted},
		{StatusDraft, ActionCancel}:     {to: StatusCancelled, guard: guardCancel},
		{StatusPending, ActionCancel}:   {to: StatusCancelled, guard: guardCancel},
		{StatusApproved, ActionCancel}:  {to: StatusCancelled, guard: guardCancel},
	},
	TypeRFQ: {
		{StatusDraft, ActionSend}:     {to: StatusSent, guard: guardHasLines},
		{StatusSent, ActionComplete}:  {to: StatusCompleted},
		{StatusDraft, ActionCancel}:   {to: StatusCancelled, guard: guardCancel},
		{StatusSent, ActionCancel}:    {to: StatusCancelled, guard: guardCancel},
	},
	TypeQuotation: {
		{StatusDraft, ActionSubmit}:      {to: StatusPending, guard: guardHasLines},
		{StatusPending, ActionApprove}:   {to: StatusApproved},
		{StatusPending, ActionReject}:    {to: StatusRejected},
		{StatusApproved, ActionComplete}: {to: StatusCompleted},
		{StatusDraft, ActionCancel}:      {to: StatusCancelled, guard: guardCancel},
		{StatusPending, ActionCancel}:    {to: StatusCancelled, guard: guardCancel},
		{StatusApproved, ActionCancel}:   {to: StatusCancelled, guard: guardCancel},
	},
	TypePurchaseOrder: {
		{StatusPending, ActionApprove}: {to: StatusApproved, guard: guardHasLines},
		{StatusPending, ActionReject}:  {to: StatusRejected},
		{StatusApproved, ActionSend}:   {to: StatusSent},
		{StatusSent, ActionComplete}:   {to: StatusCompleted},
		{StatusPending, ActionCancel}:  {to: StatusCancelled, guard: guardCancel},
		{StatusApproved, ActionCancel}: {to: StatusCancelled, guard: guardCancel},
		{StatusSent, ActionCancel}:     {to: StatusCancelled, guard: guardCancel},
	},
	TypeGoodsReceipt: {
		{StatusDraft, ActionPost}:   {to: StatusCompleted, guard: guardHasLines},
		{StatusDraft, ActionCancel}: {to: StatusCancelled, guard: guardCancelReason},
	},
	TypeSalesOrder: {
		{StatusPending, ActionApprove}: {to: StatusApproved, guard: guardHasLines},
		{StatusPending, ActionReject}:  {to: StatusRejected},
		{StatusApproved, ActionSend}:   {to: StatusSent},
		{StatusSent, ActionComplete}:   {to: StatusCompleted},
		{StatusPending, ActionCancel}:  {to: StatusCancelled, guard: guardCancel},
		{StatusApproved, ActionCancel}: {to: StatusCancelled, guard: guardCancel},
		{StatusSent, ActionCancel}:     {to: StatusCancelled, guard: guardCancel},
	},
	TypeDelivery: {
		{StatusDraft, ActionPost}:   {to: StatusCompleted, guard: guardHasLines},
		{StatusDraft, ActionCancel}: {to: StatusCancelled, guard: guardCancel},
	},
	TypeARInvoice: {
		{StatusUnpaid, ActionCancel}: {to: StatusCancelled, guard: guardInvoiceUntouched},
	},
	TypeAPInvoice: {
		{StatusUnpaid, ActionCancel}: {to: StatusCancelled, guard: guardInvoiceUntouched},
	},
	TypeReturnOrder: {
		{StatusDraft, ActionApprove}:     {to: StatusApproved, guard: guardHasLines},
		{StatusApproved, ActionComplete}: {to: StatusCompleted, guard: guardReturnReceived},
		{StatusDraft, ActionCancel}:      {to: StatusCancelled, guard: guardCancel},
		{StatusApproved, ActionCancel}:   {to: StatusCancelled, guard: guardCancel},
	},
	TypeCreditNote: {
		{StatusDraft, ActionPost}:   {to: StatusCompleted, guard: guardHasLines},
		{StatusDraft, ActionCancel}: {to: StatusCancelled, guard: guardCancelReason},
	},
}

// Payment-driven edges on invoices. Payments and credit applications pick
// the target from the remaining balance, so these are validated separately
// from the action table.
var paymentEdges = map[Status][]Status{
	StatusUnpaid:        {StatusPartiallyPaid, StatusPaid},
	StatusPartiallyPaid: {StatusPartiallyPaid, StatusPaid},
}

// InitialStatus returns the state a freshly created document of the given
// type starts in
func InitialStatus(t Type) Status {
	return initialStatuses[t]
}

// AllowedActions returns the actions legal for a type in a given status,
// sorted for stable output
func AllowedActions(t Type, from Status) []Action {
	var actions []Action
	for key := range transitions[t] {
		if key.from == from {
			actions = append(actions, key.action)
		}
	}
	if t.IsInvoice() {
		if _, ok := paymentEdges[from]; ok {
			actions = append(actions, ActionPay)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// CanTransition reports whether the action is legal for the document's
// type in its current status, ignoring guards
func CanTransition(t Type, from Status, action Action) bool {
	_, ok := transitions[t][transitionKey{from, action}]
	return ok
}

func canPaymentTransition(from, to Status) bool {
	for _, target := range paymentEdges[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Apply runs the workflow action against the document: looks up the edge,
// evaluates its guard, moves the status and stamps the actor. Invoices'
// PAY action is driven by ApplyPayment/ApplyCredit instead.
func (d *Document) Apply(action Action, actorID uuid.UUID, reason string) error {
	if !action.IsValid() {
		return shared.NewDomainError(shared.CodeValidationFailed, fmt.Sprintf("Unknown action %q", action))
	}
	if action == ActionPay {
		return shared.NewDomainError(shared.CodeValidationFailed, "Payments are applied through the payment operation, not a workflow action")
	}

	rule, ok := transitions[d.Type][transitionKey{d.Status, action}]
	if !ok {
		return invalidTransition(d, action)
	}
	if rule.guard != nil {
		if err := rule.guard(d, reason); err != nil {
			return err
		}
	}

	from := d.Status
	now := time.Now()
	d.Status = rule.to

	switch action {
	case ActionApprove:
		d.ApprovedBy = &actorID
		d.ApprovedAt = &now
	case ActionPost, ActionComplete:
		d.PostedAt = &now
	case ActionCancel:
		d.CancelledAt = &now
		d.CancelReason = reason
	}

	d.StampUpdatedBy(actorID)
	d.UpdatedAt = now
	d.AddDomainEvent(NewDocumentTransitionedEvent(d, action, from, rule.to, actorID, reason))

	return nil
}

func invalidTransition(d *Document, action Action) error {
	allowed := AllowedActions(d.Type, d.Status)
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = a.String()
	}
	allowedDesc := "none"
	if len(names) > 0 {
		allowedDesc = strings.Join(names, ", ")
	}
	return shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("Cannot %s %s in %s status; allowed actions: %s", action, d.Type, d.Status, allowedDesc))
}

// Guards

func guardHasLines(d *Document, _ string) error {
	if len(d.Lines) == 0 {
		return shared.NewDomainError(shared.CodeValidationFailed, fmt.Sprintf("Cannot advance %s without lines", d.Type))
	}
	return nil
}

func guardCancelReason(_ *Document, reason string) error {
	if reason == "" {
		return shared.NewDomainError(shared.CodeValidationFailed, "Cancel reason is required")
	}
	return nil
}

// guardCancel blocks cancellation once any downstream document has
// consumed quantity from this document's lines
func guardCancel(d *Document, reason string) error {
	if err := guardCancelReason(d, reason); err != nil {
		return err
	}
	for i := range d.Lines {
		if d.Lines[i].HasAnyConsumption() {
			return shared.NewDomainError(shared.CodeInvalidTransition,
				fmt.Sprintf("Cannot cancel %s %s: downstream documents have consumed its lines", d.Type, d.Number))
		}
	}
	return nil
}

// guardInvoiceUntouched allows cancelling an invoice only while nothing
// has been applied against it
func guardInvoiceUntouched(d *Document, reason string) error {
	if err := guardCancelReason(d, reason); err != nil {
		return err
	}
	if !d.BalanceAmount.Equal(d.TotalAmount) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			"Cannot cancel an invoice with payments or credits applied")
	}
	return nil
}

// guardReturnReceived gates return order completion on the inbound receipt
// sub-state
func guardReturnReceived(d *Document, _ string) error {
	if d.GoodsReceiptStatus != GoodsReceiptCompleted {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Cannot complete return order before goods are received back (receipt status %s)", d.GoodsReceiptStatus))
	}
	return nil
}
