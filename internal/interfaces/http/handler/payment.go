package handler

import (
	"github.com/erp/backoffice/internal/application/workflow"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment and credit endpoints on invoices
type PaymentHandler struct {
	BaseHandler
	payments *workflow.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *workflow.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// ApplyPayment handles POST /api/v1/invoices/:id/payments
func (h *PaymentHandler) ApplyPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req workflow.ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	resp, err := h.payments.ApplyPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ApplyCredit handles POST /api/v1/invoices/:id/credits
func (h *PaymentHandler) ApplyCredit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req workflow.ApplyCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	resp, err := h.payments.ApplyCredit(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
