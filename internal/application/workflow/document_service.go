package workflow

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/domain/catalog"
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentService handles document creation, editing and workflow
// transitions
type DocumentService struct {
	docRepo         document.Repository
	balanceRepo     finance.Repository
	numbers         *numbering.Generator
	quantities      *ledger.Service
	txRunner        shared.TxRunner
	products        catalog.Repository
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(docRepo document.Repository, balanceRepo finance.Repository, numbers *numbering.Generator, quantities *ledger.Service, txRunner shared.TxRunner) *DocumentService {
	return &DocumentService{
		docRepo:     docRepo,
		balanceRepo: balanceRepo,
		numbers:     numbers,
		quantities:  quantities,
		txRunner:    txRunner,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *DocumentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetProductCatalog sets the catalog used to default line description,
// price and tax rate when a request names a product but omits them
func (s *DocumentService) SetProductCatalog(products catalog.Repository) {
	s.products = products
}

// SetBusinessMetrics sets the business metrics collector
func (s *DocumentService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Create creates a new document in its initial status
func (s *DocumentService) Create(ctx context.Context, req CreateDocumentRequest) (*DocumentResponse, error) {
	number, err := s.numbers.Next(ctx, req.Type)
	if err != nil {
		return nil, err
	}

	doc, err := document.New(req.Type, number, req.PartyID, req.PartyName, req.ActorID)
	if err != nil {
		return nil, err
	}

	for _, line := range req.Lines {
		description, unitPrice, taxRate, err := s.resolveLine(ctx, line.ProductID, line.Description, line.UnitPrice, line.TaxRate)
		if err != nil {
			return nil, err
		}
		if _, err := doc.AddLine(line.ProductID, description, line.Quantity, unitPrice, line.Discount.toDiscount(), taxRate); err != nil {
			return nil, err
		}
	}

	if req.Discount != nil {
		if err := doc.SetHeaderDiscount(req.Discount.toDiscount()); err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		doc.SetNotes(req.Notes)
	}

	// Document and balance commit together; a failed save must not leave a
	// committed balance entry behind
	err = s.txRunner.InTx(ctx, func(ctx context.Context) error {
		// Invoices carry a balance from the moment they exist
		if doc.Type.IsInvoice() && doc.TotalAmount.IsPositive() {
			if err := s.recordInvoiceOnBalance(ctx, doc); err != nil {
				return err
			}
		}
		return s.docRepo.SaveWithLockAndEvents(ctx, doc, doc.GetDomainEvents())
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, doc)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordDocumentCreated(ctx, doc.Type, doc.TotalAmount)
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// GetByID retrieves a document by ID
func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// GetByNumber retrieves a document by its type and business number
func (s *DocumentService) GetByNumber(ctx context.Context, docType document.Type, number string) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByNumber(ctx, docType, number)
	if err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// List lists documents matching the request filters
func (s *DocumentService) List(ctx context.Context, req ListDocumentsRequest) (*shared.Paginated[DocumentResponse], error) {
	filter := document.Filter{
		Filter:  shared.DefaultFilter(),
		Type:    req.Type,
		Status:  req.Status,
		PartyID: req.PartyID,
		Search:  req.Search,
	}
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}

	page, err := s.docRepo.FindByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]DocumentResponse, len(page.Items))
	for i, doc := range page.Items {
		items[i] = ToDocumentResponse(doc)
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// AddLine adds a line to a modifiable document
func (s *DocumentService) AddLine(ctx context.Context, id uuid.UUID, req AddLineRequest) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	description, unitPrice, taxRate, err := s.resolveLine(ctx, req.ProductID, req.Description, req.UnitPrice, req.TaxRate)
	if err != nil {
		return nil, err
	}
	if _, err := doc.AddLine(req.ProductID, description, req.Quantity, unitPrice, req.Discount.toDiscount(), taxRate); err != nil {
		return nil, err
	}
	doc.StampUpdatedBy(req.ActorID)

	if err := s.docRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// UpdateLine updates quantity or price of a document line
func (s *DocumentService) UpdateLine(ctx context.Context, id, lineID uuid.UUID, req UpdateLineRequest) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		if err := doc.UpdateLineQuantity(lineID, *req.Quantity); err != nil {
			return nil, err
		}
	}
	if req.UnitPrice != nil {
		if err := doc.UpdateLinePrice(lineID, *req.UnitPrice); err != nil {
			return nil, err
		}
	}
	doc.StampUpdatedBy(req.ActorID)

	if err := s.docRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// RemoveLine removes a line from a modifiable document
func (s *DocumentService) RemoveLine(ctx context.Context, id, lineID, actorID uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := doc.RemoveLine(lineID); err != nil {
		return nil, err
	}
	doc.StampUpdatedBy(actorID)

	if err := s.docRepo.SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// Transition applies a workflow action to a document. Cancelling a
// converted document gives its quantities back to the upstream lines;
// cancelling an untouched invoice reverses its balance effect.
func (s *DocumentService) Transition(ctx context.Context, id uuid.UUID, req TransitionRequest) (*DocumentResponse, error) {
	var doc *document.Document
	var toSave []*document.Document
	err := s.txRunner.InTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.docRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		wasInvoiceOpen := doc.Type.IsInvoice() && doc.BalanceAmount.Equal(doc.TotalAmount)

		if err := doc.Apply(req.Action, req.ActorID, req.Reason); err != nil {
			return err
		}

		toSave = []*document.Document{doc}

		if req.Action == document.ActionCancel && doc.ParentID != nil {
			source, err := s.releaseUpstream(ctx, doc)
			if err != nil {
				return err
			}
			if source != nil {
				toSave = append(toSave, source)
			}
		}

		if req.Action == document.ActionCancel && doc.Type.IsInvoice() && wasInvoiceOpen && doc.TotalAmount.IsPositive() {
			if err := s.reverseInvoiceOnBalance(ctx, doc); err != nil {
				return err
			}
		}

		// Posting a goods receipt that stems from a return order completes the
		// return's inbound sub-state
		if doc.Type == document.TypeGoodsReceipt && req.Action == document.ActionPost && doc.ParentID != nil {
			parent, err := s.docRepo.FindByIDForUpdate(ctx, *doc.ParentID)
			if err != nil {
				return err
			}
			if parent.Type == document.TypeReturnOrder {
				if err := parent.SetGoodsReceiptStatus(document.GoodsReceiptCompleted); err != nil {
					return err
				}
				toSave = append(toSave, parent)
			}
		}

		var events []shared.DomainEvent
		for _, d := range toSave {
			events = append(events, d.GetDomainEvents()...)
		}
		return s.docRepo.SaveAllWithEvents(ctx, toSave, events)
	})
	if err != nil {
		return nil, err
	}
	for _, d := range toSave {
		s.publish(ctx, d)
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordTransition(ctx, doc.Type, req.Action, doc.Status)
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// AllowedActions returns the legal workflow actions for a document
func (s *DocumentService) AllowedActions(ctx context.Context, id uuid.UUID) ([]document.Action, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return document.AllowedActions(doc.Type, doc.Status), nil
}

func (s *DocumentService) releaseUpstream(ctx context.Context, cancelled *document.Document) (*document.Document, error) {
	source, err := s.docRepo.FindByIDForUpdate(ctx, *cancelled.ParentID)
	if err != nil {
		return nil, err
	}
	if !document.CanConvert(source.Type, cancelled.Type) {
		return nil, nil
	}
	if err := s.quantities.ReleaseDocument(ctx, source, cancelled); err != nil {
		return nil, err
	}

	// Cancelling the inbound receipt puts the return order back to NONE, so
	// a replacement receipt can be converted later
	if cancelled.Type == document.TypeGoodsReceipt && source.Type == document.TypeReturnOrder &&
		source.GoodsReceiptStatus == document.GoodsReceiptPending {
		if err := source.ResetGoodsReceiptStatus(); err != nil {
			return nil, err
		}
	}

	return source, nil
}

// resolveLine fills description, unit price and tax rate from the product
// catalog when the request names a product and leaves them empty. Without a
// catalog the request values pass through unchanged.
func (s *DocumentService) resolveLine(ctx context.Context, productID *uuid.UUID, description string, unitPrice decimal.Decimal, taxRate *decimal.Decimal) (string, decimal.Decimal, decimal.Decimal, error) {
	resolvedTax := decimal.Zero
	if taxRate != nil {
		resolvedTax = *taxRate
	}
	if productID == nil || s.products == nil {
		return description, unitPrice, resolvedTax, nil
	}
	if description != "" && !unitPrice.IsZero() && taxRate != nil {
		return description, unitPrice, resolvedTax, nil
	}

	product, err := s.products.FindByID(ctx, *productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeValidationFailed, "Unknown product")
		}
		return "", decimal.Zero, decimal.Zero, err
	}

	if description == "" {
		description = product.Name
	}
	if unitPrice.IsZero() {
		unitPrice = product.UnitPrice
	}
	if taxRate == nil {
		resolvedTax = product.TaxRate
	}
	return description, unitPrice, resolvedTax, nil
}

func (s *DocumentService) recordInvoiceOnBalance(ctx context.Context, doc *document.Document) error {
	balance, err := s.balanceRepo.FindByPartyForUpdate(ctx, doc.PartyID, balanceSide(doc.Type))
	if err != nil {
		return err
	}
	tx, err := balance.RecordInvoice(doc.ID, doc.TotalAmount)
	if err != nil {
		return err
	}
	return s.balanceRepo.Save(ctx, balance, tx)
}

func (s *DocumentService) reverseInvoiceOnBalance(ctx context.Context, doc *document.Document) error {
	balance, err := s.balanceRepo.FindByPartyForUpdate(ctx, doc.PartyID, balanceSide(doc.Type))
	if err != nil {
		return err
	}
	tx, err := balance.ReverseInvoice(doc.ID, doc.TotalAmount)
	if err != nil {
		return err
	}
	return s.balanceRepo.Save(ctx, balance, tx)
}

func (s *DocumentService) publish(ctx context.Context, doc *document.Document) {
	if s.eventPublisher == nil {
		return
	}
	events := doc.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Best effort: the outbox already holds the events durably
	_ = s.eventPublisher.Publish(ctx, events...)
	doc.ClearDomainEvents()
}

func balanceSide(t document.Type) finance.Side {
	if t == document.TypeARInvoice {
		return finance.SideReceivable
	}
	return finance.SidePayable
}
