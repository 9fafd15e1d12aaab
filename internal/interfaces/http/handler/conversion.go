package handler

import (
	"github.com/erp/backoffice/internal/application/workflow"
	"github.com/gin-gonic/gin"
)

// ConversionHandler handles document conversion endpoints
type ConversionHandler struct {
	BaseHandler
	conversions *workflow.ConversionService
}

// NewConversionHandler creates a new ConversionHandler
func NewConversionHandler(conversions *workflow.ConversionService) *ConversionHandler {
	return &ConversionHandler{conversions: conversions}
}

// Convert handles POST /api/v1/documents/:id/convert
func (h *ConversionHandler) Convert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	var req workflow.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	resp, err := h.conversions.Convert(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Targets handles GET /api/v1/documents/:id/conversion-targets
func (h *ConversionHandler) Targets(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	targets, err := h.conversions.Targets(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"targets": targets})
}
