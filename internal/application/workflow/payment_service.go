package workflow

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// PaymentService settles invoices with payments and credit notes
type PaymentService struct {
	docRepo         document.Repository
	balanceRepo     finance.Repository
	idempotency     shared.IdempotencyStore
	txRunner        shared.TxRunner
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(docRepo document.Repository, balanceRepo finance.Repository, idempotency shared.IdempotencyStore, txRunner shared.TxRunner) *PaymentService {
	return &PaymentService{
		docRepo:     docRepo,
		balanceRepo: balanceRepo,
		idempotency: idempotency,
		txRunner:    txRunner,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *PaymentService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ApplyPayment reduces an invoice balance by the paid amount. The invoice
// and the party balance commit in one transaction. A repeated idempotency
// key returns the current state without double-applying.
func (s *PaymentService) ApplyPayment(ctx context.Context, invoiceID uuid.UUID, req ApplyPaymentRequest) (*DocumentResponse, error) {
	if req.IdempotencyKey != "" {
		key := paymentKey(invoiceID, req.IdempotencyKey)
		processed, err := s.idempotency.IsProcessed(ctx, key)
		if err != nil {
			return nil, err
		}
		if processed {
			return s.currentState(ctx, invoiceID)
		}
	}

	var doc *document.Document
	var events []shared.DomainEvent
	err := s.txRunner.InTx(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.docRepo.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := doc.ApplyPayment(req.Amount, req.ActorID); err != nil {
			return err
		}

		balance, err := s.balanceRepo.FindByPartyForUpdate(ctx, doc.PartyID, balanceSide(doc.Type))
		if err != nil {
			return err
		}
		tx, err := balance.RecordPayment(doc.ID, req.Amount)
		if err != nil {
			return err
		}
		if err := s.balanceRepo.Save(ctx, balance, tx); err != nil {
			return err
		}

		events = doc.GetDomainEvents()
		return s.docRepo.SaveWithLockAndEvents(ctx, doc, events)
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil && len(events) > 0 {
		_ = s.eventPublisher.Publish(ctx, events...)
		doc.ClearDomainEvents()
	}

	// Marked after the commit: a crash in between leaves the key unset and a
	// retry hits the OVER_PAYMENT guard instead of double-applying a full
	// payment. Partial payments retried across that window apply twice; the
	// caller's key only bounds the common case.
	if req.IdempotencyKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, paymentKey(invoiceID, req.IdempotencyKey), shared.DefaultIdempotencyConfig().TTL); err != nil {
			return nil, err
		}
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordPayment(ctx, doc.Type, req.Amount)
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// ApplyCredit settles part of an AR invoice with a posted credit note. The
// credit note is consumed in the same transaction, so it can never settle
// two invoices.
func (s *PaymentService) ApplyCredit(ctx context.Context, invoiceID uuid.UUID, req ApplyCreditRequest) (*DocumentResponse, error) {
	var doc *document.Document
	var events []shared.DomainEvent
	err := s.txRunner.InTx(ctx, func(ctx context.Context) error {
		creditNote, err := s.docRepo.FindByIDForUpdate(ctx, req.CreditNoteID)
		if err != nil {
			return err
		}
		if creditNote.Type != document.TypeCreditNote {
			return shared.NewDomainError(shared.CodeValidationFailed,
				fmt.Sprintf("%s %s is not a credit note", creditNote.Type, creditNote.Number))
		}

		doc, err = s.docRepo.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if doc.PartyID != creditNote.PartyID {
			return shared.NewDomainError(shared.CodeValidationFailed,
				"Credit note and invoice belong to different parties")
		}

		if err := creditNote.MarkCreditNoteApplied(req.ActorID); err != nil {
			return err
		}
		if err := doc.ApplyCredit(creditNote.TotalAmount, req.ActorID); err != nil {
			return err
		}

		balance, err := s.balanceRepo.FindByPartyForUpdate(ctx, doc.PartyID, finance.SideReceivable)
		if err != nil {
			return err
		}
		tx, err := balance.RecordCredit(creditNote.ID, creditNote.TotalAmount)
		if err != nil {
			return err
		}
		if err := s.balanceRepo.Save(ctx, balance, tx); err != nil {
			return err
		}

		events = append(doc.GetDomainEvents(), creditNote.GetDomainEvents()...)
		return s.docRepo.SaveAllWithEvents(ctx, []*document.Document{doc, creditNote}, events)
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil && len(events) > 0 {
		_ = s.eventPublisher.Publish(ctx, events...)
		doc.ClearDomainEvents()
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

func (s *PaymentService) currentState(ctx context.Context, invoiceID uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

func paymentKey(invoiceID uuid.UUID, key string) string {
	return fmt.Sprintf("payment:%s:%s", invoiceID, key)
}
