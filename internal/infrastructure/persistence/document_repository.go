package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event
// publishing
func (r *GormDocumentRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// conn returns the transaction carried by the context when a unit of work
// is open, the plain connection otherwise
func (r *GormDocumentRepository) conn(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// FindByID finds a document by its ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var doc document.Document
	if err := r.conn(ctx).
		Preload("Lines").
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByIDForUpdate loads a document with a FOR UPDATE row lock. The
// optimistic version check in SaveWithLock remains the real concurrency
// guard; the lock shortens the race window for read-modify-write flows.
func (r *GormDocumentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var doc document.Document
	if err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByNumber finds a document by its type and business number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, docType document.Type, number string) (*document.Document, error) {
	var doc document.Document
	if err := r.conn(ctx).
		Preload("Lines").
		Where("type = ? AND number = ?", docType, number).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindAll lists documents matching the base filter
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]document.Document, error) {
	var docs []document.Document
	query := r.conn(ctx).Model(&document.Document{}).Preload("Lines")
	query = applyPagination(query, filter)
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindByFilter lists documents with optional type, status and party
// constraints
func (r *GormDocumentRepository) FindByFilter(ctx context.Context, filter document.Filter) (*shared.Paginated[*document.Document], error) {
	var total int64
	countQuery := applyDocumentFilter(r.conn(ctx).Model(&document.Document{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, err
	}

	var docs []*document.Document
	listQuery := applyDocumentFilter(r.conn(ctx).Model(&document.Document{}).Preload("Lines"), filter)
	if err := applyPagination(listQuery, filter.Filter).Find(&docs).Error; err != nil {
		return nil, err
	}

	page, pageSize := normalizePage(filter.Filter)
	result := shared.NewPaginated(docs, total, page, pageSize)
	return &result, nil
}

// FindByParent lists documents converted from the given source
func (r *GormDocumentRepository) FindByParent(ctx context.Context, parentID uuid.UUID) ([]*document.Document, error) {
	var docs []*document.Document
	if err := r.conn(ctx).
		Preload("Lines").
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save persists a document and its lines without a version check
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(doc).Error; err != nil {
			return err
		}
		return r.saveLines(tx, doc)
	})
}

// SaveWithLock persists the document with an optimistic version check. New
// documents are inserted; existing ones fail with STALE_STATE when the
// stored version no longer matches the loaded one.
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *document.Document) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveLocked(tx, doc)
	})
}

// SaveWithLockAndEvents persists the document and its pending domain events
// to the outbox in one transaction. This implements the transactional outbox
// pattern: event delivery cannot fail the business transaction, and a
// committed transaction cannot lose its events.
func (r *GormDocumentRepository) SaveWithLockAndEvents(ctx context.Context, doc *document.Document, events []shared.DomainEvent) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveLocked(tx, doc); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, events)
	})
}

// SaveAllWithEvents persists several documents and their pending events
// atomically. Conversions save source and target together through this.
func (r *GormDocumentRepository) SaveAllWithEvents(ctx context.Context, docs []*document.Document, events []shared.DomainEvent) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		for _, doc := range docs {
			if err := r.saveLocked(tx, doc); err != nil {
				return err
			}
		}
		return r.saveEvents(ctx, tx, events)
	})
}

// Delete soft-deletes a document, keeping its number reserved
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.conn(ctx).Delete(&document.Document{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts documents matching the base filter
func (r *GormDocumentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.conn(ctx).Model(&document.Document{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR party_name ILIKE ?", pattern, pattern)
	}
	err := query.Count(&count).Error
	return count, err
}

// saveLocked inserts a new document or updates an existing one with a
// version check, then reconciles lines
func (r *GormDocumentRepository) saveLocked(tx *gorm.DB, doc *document.Document) error {
	var currentVersion int
	result := tx.Model(&document.Document{}).
		Where("id = ?", doc.ID).
		Select("version").
		Scan(&currentVersion)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// New document: insert with lines in one go
		return tx.Create(doc).Error
	}

	if currentVersion != doc.GetVersion() {
		return shared.ErrStaleState
	}

	doc.IncrementVersion()
	doc.UpdatedAt = time.Now()

	updates := tx.Model(&document.Document{}).
		Where("id = ? AND version = ?", doc.ID, currentVersion).
		Updates(map[string]interface{}{
			"status":               doc.Status,
			"party_id":             doc.PartyID,
			"party_name":           doc.PartyName,
			"parent_id":            doc.ParentID,
			"header_discount_kind": doc.HeaderDiscountKind,
			"header_discount_val":  doc.HeaderDiscountVal,
			"subtotal":             doc.Subtotal,
			"header_discount":      doc.HeaderDiscount,
			"tax_amount":           doc.TaxAmount,
			"total_amount":         doc.TotalAmount,
			"balance_amount":       doc.BalanceAmount,
			"goods_receipt_status": doc.GoodsReceiptStatus,
			"notes":                doc.Notes,
			"approved_by":          doc.ApprovedBy,
			"approved_at":          doc.ApprovedAt,
			"posted_at":            doc.PostedAt,
			"cancelled_at":         doc.CancelledAt,
			"cancel_reason":        doc.CancelReason,
			"updated_by":           doc.UpdatedBy,
			"version":              doc.GetVersion(),
			"updated_at":           doc.UpdatedAt,
		})

	if updates.Error != nil {
		return updates.Error
	}
	if updates.RowsAffected == 0 {
		return shared.ErrStaleState
	}

	return r.saveLines(tx, doc)
}

// saveLines deletes removed lines and upserts the remaining ones
func (r *GormDocumentRepository) saveLines(tx *gorm.DB, doc *document.Document) error {
	currentLineIDs := make([]uuid.UUID, len(doc.Lines))
	for i, line := range doc.Lines {
		currentLineIDs[i] = line.ID
	}

	if len(currentLineIDs) > 0 {
		if err := tx.Where("document_id = ? AND id NOT IN ?", doc.ID, currentLineIDs).
			Delete(&document.Line{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("document_id = ?", doc.ID).
			Delete(&document.Line{}).Error; err != nil {
			return err
		}
	}

	for i := range doc.Lines {
		doc.Lines[i].DocumentID = doc.ID
		if err := tx.Save(&doc.Lines[i]).Error; err != nil {
			return err
		}
	}

	return nil
}

// saveEvents writes pending events to the outbox within the transaction
func (r *GormDocumentRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// applyDocumentFilter narrows a query by the optional document filter fields
func applyDocumentFilter(query *gorm.DB, filter document.Filter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PartyID != nil {
		query = query.Where("party_id = ?", *filter.PartyID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR party_name ILIKE ?", pattern, pattern)
	}
	return query
}

// applyPagination applies ordering and pagination from the base filter
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	page, pageSize := normalizePage(filter)

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir != "asc" && orderDir != "desc" {
		orderDir = "desc"
	}

	return query.
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset((page - 1) * pageSize).
		Limit(pageSize)
}

// normalizePage clamps page and page size to sane values
func normalizePage(filter shared.Filter) (page, pageSize int) {
	page = filter.Page
	if page < 1 {
		page = 1
	}
	pageSize = filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

// Ensure GormDocumentRepository implements document.Repository
var _ document.Repository = (*GormDocumentRepository)(nil)
