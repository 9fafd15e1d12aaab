package workflow

import (
	"context"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/numbering"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// ConversionService turns documents into their downstream successors
type ConversionService struct {
	docRepo         document.Repository
	balanceRepo     finance.Repository
	numbers         *numbering.Generator
	quantities      *ledger.Service
	txRunner        shared.TxRunner
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
}

// NewConversionService creates a new ConversionService
func NewConversionService(docRepo document.Repository, balanceRepo finance.Repository, numbers *numbering.Generator, quantities *ledger.Service, txRunner shared.TxRunner) *ConversionService {
	return &ConversionService{
		docRepo:     docRepo,
		balanceRepo: balanceRepo,
		numbers:     numbers,
		quantities:  quantities,
		txRunner:    txRunner,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ConversionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *ConversionService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Convert creates a downstream document from the source's remaining
// quantities, advancing the rollup counters and the quantity ledger. Both
// documents, the ledger rows and any balance entry commit as one unit.
func (s *ConversionService) Convert(ctx context.Context, sourceID uuid.UUID, req ConvertRequest) (*ConvertResponse, error) {
	number, err := s.numbers.Next(ctx, req.TargetType)
	if err != nil {
		return nil, err
	}

	selections := make([]document.LineSelection, len(req.Lines))
	for i, line := range req.Lines {
		selections[i] = document.LineSelection{LineID: line.LineID, Quantity: line.Quantity}
	}

	var source, target *document.Document
	var events []shared.DomainEvent
	err = s.txRunner.InTx(ctx, func(ctx context.Context) error {
		var err error
		source, err = s.docRepo.FindByIDForUpdate(ctx, sourceID)
		if err != nil {
			return err
		}

		target, err = document.Convert(source, req.TargetType, number, selections, req.ActorID)
		if err != nil {
			return err
		}

		if err := s.quantities.RecordConversion(ctx, source, target); err != nil {
			return err
		}

		// A return order starts waiting for its goods the moment the inbound
		// receipt exists
		if source.Type == document.TypeReturnOrder && target.Type == document.TypeGoodsReceipt {
			if err := source.SetGoodsReceiptStatus(document.GoodsReceiptPending); err != nil {
				return err
			}
		}

		// A converted invoice lands on the party balance immediately
		if target.Type.IsInvoice() && target.TotalAmount.IsPositive() {
			if err := s.recordInvoiceOnBalance(ctx, target); err != nil {
				return err
			}
		}

		events = append(source.GetDomainEvents(), target.GetDomainEvents()...)
		return s.docRepo.SaveAllWithEvents(ctx, []*document.Document{source, target}, events)
	})
	if err != nil {
		return nil, err
	}
	if s.eventPublisher != nil && len(events) > 0 {
		_ = s.eventPublisher.Publish(ctx, events...)
		source.ClearDomainEvents()
		target.ClearDomainEvents()
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordConversion(ctx, source.Type, target.Type)
	}

	return &ConvertResponse{
		Source: ToDocumentResponse(source),
		Target: ToDocumentResponse(target),
	}, nil
}

// Targets lists the document types the source can still convert to
func (s *ConversionService) Targets(ctx context.Context, sourceID uuid.UUID) ([]document.Type, error) {
	source, err := s.docRepo.FindByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return document.ConversionTargets(source.Type), nil
}

func (s *ConversionService) recordInvoiceOnBalance(ctx context.Context, doc *document.Document) error {
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
