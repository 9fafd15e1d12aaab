package handler

import (
	"strconv"

	"github.com/erp/backoffice/internal/application/workflow"
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles document lifecycle endpoints
type DocumentHandler struct {
	BaseHandler
	documents *workflow.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents *workflow.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Create handles POST /api/v1/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req workflow.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	resp, err := h.documents.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// Get handles GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	resp, err := h.documents.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetByNumber handles GET /api/v1/documents/by-number/:type/:number
func (h *DocumentHandler) GetByNumber(c *gin.Context) {
	docType := document.Type(c.Param("type"))
	if !docType.IsValid() {
		h.BadRequest(c, "Unknown document type")
		return
	}

	resp, err := h.documents.GetByNumber(c.Request.Context(), docType, c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// List handles GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	req, ok := h.parseListRequest(c)
	if !ok {
		return
	}

	result, err := h.documents.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// AddLine handles POST /api/v1/documents/:id/lines
func (h *DocumentHandler) AddLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	var req workflow.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	resp, err := h.documents.AddLine(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// UpdateLine handles PUT /api/v1/documents/:id/lines/:lineId
func (h *DocumentHandler) UpdateLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}
	lineID, ok := parseID(c, "lineId")
	if !ok {
		h.BadRequest(c, "Invalid line ID")
		return
	}

	var req workflow.UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	resp, err := h.documents.UpdateLine(c.Request.Context(), id, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RemoveLine handles DELETE /api/v1/documents/:id/lines/:lineId
func (h *DocumentHandler) RemoveLine(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}
	lineID, ok := parseID(c, "lineId")
	if !ok {
		h.BadRequest(c, "Invalid line ID")
		return
	}

	resp, err := h.documents.RemoveLine(c.Request.Context(), id, lineID, getActorID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Transition handles POST /api/v1/documents/:id/transition
func (h *DocumentHandler) Transition(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	var req workflow.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ActorID = getActorID(c)

	resp, err := h.documents.Transition(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// AllowedActions handles GET /api/v1/documents/:id/actions
func (h *DocumentHandler) AllowedActions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID")
		return
	}

	actions, err := h.documents.AllowedActions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"actions": actions})
}

// parseListRequest reads list query parameters. Enum and UUID filters are
// parsed by hand because gin's form binding cannot fill pointer fields of
// custom types.
func (h *DocumentHandler) parseListRequest(c *gin.Context) (workflow.ListDocumentsRequest, bool) {
	req := workflow.ListDocumentsRequest{
		Search: c.Query("search"),
	}

	if raw := c.Query("type"); raw != "" {
		docType := document.Type(raw)
		if !docType.IsValid() {
			h.BadRequest(c, "Unknown document type")
			return req, false
		}
		req.Type = &docType
	}

	if raw := c.Query("status"); raw != "" {
		status := document.Status(raw)
		req.Status = &status
	}

	if raw := c.Query("party_id"); raw != "" {
		partyID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid party ID")
			return req, false
		}
		req.PartyID = &partyID
	}

	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			req.Page = page
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if pageSize, err := strconv.Atoi(raw); err == nil {
			req.PageSize = pageSize
		}
	}

	return req, true
}
