package handler

import (
	"strconv"

	financeapp "github.com/erp/backoffice/internal/application/finance"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/gin-gonic/gin"
)

// BalanceHandler handles party balance and reconciliation endpoints
type BalanceHandler struct {
	BaseHandler
	balances       *financeapp.BalanceService
	reconciliation *financeapp.ReconciliationService
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(balances *financeapp.BalanceService, reconciliation *financeapp.ReconciliationService) *BalanceHandler {
	return &BalanceHandler{
		balances:       balances,
		reconciliation: reconciliation,
	}
}

// Get handles GET /api/v1/parties/:id/balance?side=RECEIVABLE
func (h *BalanceHandler) Get(c *gin.Context) {
	partyID, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid party ID")
		return
	}
	side, ok := h.parseSide(c)
	if !ok {
		return
	}

	resp, err := h.balances.GetBalance(c.Request.Context(), partyID, side)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Statement handles GET /api/v1/parties/:id/statement?side=RECEIVABLE&limit=50
func (h *BalanceHandler) Statement(c *gin.Context) {
	partyID, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid party ID")
		return
	}
	side, ok := h.parseSide(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	txs, err := h.balances.GetStatement(c.Request.Context(), partyID, side, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"transactions": txs})
}

// Reconcile handles POST /api/v1/parties/:id/reconcile
func (h *BalanceHandler) Reconcile(c *gin.Context) {
	partyID, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid party ID")
		return
	}

	report, err := h.reconciliation.CheckParty(c.Request.Context(), partyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// parseSide reads the required side query parameter
func (h *BalanceHandler) parseSide(c *gin.Context) (finance.Side, bool) {
	side := finance.Side(c.Query("side"))
	if !side.IsValid() {
		h.BadRequest(c, "Query parameter side must be RECEIVABLE or PAYABLE")
		return side, false
	}
	return side, true
}
