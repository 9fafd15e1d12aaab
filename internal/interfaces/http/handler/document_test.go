package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/backoffice/internal/application/workflow"
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughTxRunner runs the unit of work directly; the map-backed repo
// below has nothing to roll back
type passthroughTxRunner struct{}

func (passthroughTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// memDocumentRepo is a map-backed document.Repository for routing tests.
// The service-level fakes live in the workflow package and cannot be
// imported from here, so the handler tests carry their own.
type memDocumentRepo struct {
	docs map[uuid.UUID]*document.Document
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{docs: make(map[uuid.UUID]*document.Document)}
}

func (m *memDocumentRepo) FindByID(_ context.Context, id uuid.UUID) (*document.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (m *memDocumentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return m.FindByID(ctx, id)
}

func (m *memDocumentRepo) FindByNumber(_ context.Context, docType document.Type, number string) (*document.Document, error) {
	for _, doc := range m.docs {
		if doc.Type == docType && doc.Number == number {
			return doc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memDocumentRepo) FindAll(_ context.Context, _ shared.Filter) ([]document.Document, error) {
	out := make([]document.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (m *memDocumentRepo) FindByFilter(_ context.Context, filter document.Filter) (*shared.Paginated[*document.Document], error) {
	var items []*document.Document
	for _, doc := range m.docs {
		if filter.Type != nil && doc.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		items = append(items, doc)
	}
	page := shared.NewPaginated(items, int64(len(items)), 1, len(items)+1)
	return &page, nil
}

func (m *memDocumentRepo) FindByParent(_ context.Context, parentID uuid.UUID) ([]*document.Document, error) {
	var out []*document.Document
	for _, doc := range m.docs {
		if doc.ParentID != nil && *doc.ParentID == parentID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memDocumentRepo) Save(_ context.Context, doc *document.Document) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocumentRepo) SaveWithLock(ctx context.Context, doc *document.Document) error {
	return m.Save(ctx, doc)
}

func (m *memDocumentRepo) SaveWithLockAndEvents(ctx context.Context, doc *document.Document, _ []shared.DomainEvent) error {
	return m.Save(ctx, doc)
}

func (m *memDocumentRepo) SaveAllWithEvents(ctx context.Context, docs []*document.Document, _ []shared.DomainEvent) error {
	for _, doc := range docs {
		if err := m.Save(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (m *memDocumentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.docs, id)
	return nil
}

func (m *memDocumentRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(m.docs)), nil
}

type memSequences struct {
	values map[string]int64
}

func (m *memSequences) Next(_ context.Context, scope string) (int64, error) {
	m.values[scope]++
	return m.values[scope], nil
}

func (m *memSequences) Current(_ context.Context, scope string) (int64, error) {
	return m.values[scope], nil
}

type memLedgerRepo struct {
	rows []*ledger.Consumption
}

func (m *memLedgerRepo) Save(_ context.Context, rows ...*ledger.Consumption) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memLedgerRepo) FindByUpstreamLine(_ context.Context, _ uuid.UUID) ([]*ledger.Consumption, error) {
	return nil, nil
}

func (m *memLedgerRepo) FindByDownstreamDocument(_ context.Context, _ uuid.UUID) ([]*ledger.Consumption, error) {
	return nil, nil
}

func (m *memLedgerRepo) Exists(_ context.Context, _ uuid.UUID, _ ledger.Direction) (bool, error) {
	return false, nil
}

func (m *memLedgerRepo) SumByUpstreamLine(_ context.Context, _ uuid.UUID, _ document.ConsumptionKind) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *memDocumentRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemDocumentRepo()
	service := workflow.NewDocumentService(
		repo,
		nil,
		numbering.NewGenerator(&memSequences{values: make(map[string]int64)}),
		ledger.NewService(&memLedgerRepo{}),
		passthroughTxRunner{},
	)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.Actor())
	api := engine.Group("/api/v1")
	NewDocumentHandler(service).RegisterRoutes(api)
	return engine, repo
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorIDHeader, uuid.New().String())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func createPurchaseOrder(t *testing.T, engine *gin.Engine) workflow.DocumentResponse {
	t.Helper()
	rec, env := doJSON(t, engine, http.MethodPost, "/api/v1/documents", gin.H{
		"type":       "PURCHASE_ORDER",
		"party_id":   uuid.New().String(),
		"party_name": "Acme Supplies",
		"lines": []gin.H{
			{"description": "Widget", "quantity": "10", "unit_price": "2.50"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc workflow.DocumentResponse
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	return doc
}

func TestDocumentHandler_Create(t *testing.T) {
	engine, _ := newTestRouter(t)

	doc := createPurchaseOrder(t, engine)
	assert.Equal(t, document.TypePurchaseOrder, doc.Type)
	assert.Equal(t, document.StatusPending, doc.Status)
	assert.NotEmpty(t, doc.Number)
	assert.Len(t, doc.Lines, 1)
	assert.True(t, doc.TotalAmount.Equal(decimal.RequireFromString("25")))
}

func TestDocumentHandler_Create_MissingParty(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec, env := doJSON(t, engine, http.MethodPost, "/api/v1/documents", gin.H{
		"type": "PURCHASE_ORDER",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)
}

func TestDocumentHandler_Create_UnknownType(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec, env := doJSON(t, engine, http.MethodPost, "/api/v1/documents", gin.H{
		"type":       "MEMO",
		"party_id":   uuid.New().String(),
		"party_name": "Globex Supply",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)
}

func TestDocumentHandler_Get(t *testing.T) {
	engine, _ := newTestRouter(t)
	created := createPurchaseOrder(t, engine)

	rec, env := doJSON(t, engine, http.MethodGet, "/api/v1/documents/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc workflow.DocumentResponse
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, created.ID, doc.ID)
	assert.Equal(t, created.Number, doc.Number)
}

func TestDocumentHandler_Get_InvalidID(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec, env := doJSON(t, engine, http.MethodGet, "/api/v1/documents/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)
}

func TestDocumentHandler_Get_NotFound(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec, env := doJSON(t, engine, http.MethodGet, "/api/v1/documents/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodeNotFound, env.Error.Code)
	assert.NotEmpty(t, env.Error.RequestID)
}

func TestDocumentHandler_Transition(t *testing.T) {
	engine, _ := newTestRouter(t)
	created := createPurchaseOrder(t, engine)

	rec, env := doJSON(t, engine, http.MethodPost, "/api/v1/documents/"+created.ID.String()+"/transition", gin.H{
		"action": "APPROVE",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc workflow.DocumentResponse
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, document.StatusApproved, doc.Status)
}

func TestDocumentHandler_Transition_Invalid(t *testing.T) {
	engine, _ := newTestRouter(t)
	created := createPurchaseOrder(t, engine)

	// A pending purchase order cannot be completed before being sent.
	rec, env := doJSON(t, engine, http.MethodPost, "/api/v1/documents/"+created.ID.String()+"/transition", gin.H{
		"action": "COMPLETE",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CodeInvalidTransition, env.Error.Code)
}

func TestDocumentHandler_List(t *testing.T) {
	engine, _ := newTestRouter(t)
	createPurchaseOrder(t, engine)
	createPurchaseOrder(t, engine)

	rec, env := doJSON(t, engine, http.MethodGet, "/api/v1/documents?type=PURCHASE_ORDER", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)

	var docs []workflow.DocumentResponse
	require.NoError(t, json.Unmarshal(env.Data, &docs))
	assert.Len(t, docs, 2)
}

func TestDocumentHandler_List_InvalidType(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec, _ := doJSON(t, engine, http.MethodGet, "/api/v1/documents?type=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
