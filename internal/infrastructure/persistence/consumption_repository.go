package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormConsumptionRepository implements ledger.Repository using GORM
type GormConsumptionRepository struct {
	db *gorm.DB
}

// NewGormConsumptionRepository creates a new GormConsumptionRepository
func NewGormConsumptionRepository(db *gorm.DB) *GormConsumptionRepository {
	return &GormConsumptionRepository{db: db}
}

// conn returns the transaction carried by the context when a unit of work
// is open, the plain connection otherwise
func (r *GormConsumptionRepository) conn(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// Save persists consumption rows. Rows are immutable; the unique index on
// (downstream_line_id, direction) makes double-recording a constraint
// violation instead of silent double counting.
func (r *GormConsumptionRepository) Save(ctx context.Context, rows ...*ledger.Consumption) error {
	if len(rows) == 0 {
		return nil
	}
	return r.conn(ctx).Create(rows).Error
}

// FindByUpstreamLine lists all rows against one upstream line
func (r *GormConsumptionRepository) FindByUpstreamLine(ctx context.Context, upstreamLineID uuid.UUID) ([]*ledger.Consumption, error) {
	var rows []*ledger.Consumption
	err := r.conn(ctx).
		Where("upstream_line_id = ?", upstreamLineID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// FindByDownstreamDocument lists all rows recorded by one downstream
// document
func (r *GormConsumptionRepository) FindByDownstreamDocument(ctx context.Context, downstreamDocID uuid.UUID) ([]*ledger.Consumption, error) {
	var rows []*ledger.Consumption
	err := r.conn(ctx).
		Where("downstream_document_id = ?", downstreamDocID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Exists reports whether a row for this downstream line and direction was
// already recorded
func (r *GormConsumptionRepository) Exists(ctx context.Context, downstreamLineID uuid.UUID, direction ledger.Direction) (bool, error) {
	var count int64
	err := r.conn(ctx).
		Model(&ledger.Consumption{}).
		Where("downstream_line_id = ? AND direction = ?", downstreamLineID, direction).
		Count(&count).Error
	return count > 0, err
}

// SumByUpstreamLine nets CONSUME minus RELEASE for one upstream line and
// kind
func (r *GormConsumptionRepository) SumByUpstreamLine(ctx context.Context, upstreamLineID uuid.UUID, kind document.ConsumptionKind) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.conn(ctx).
		Model(&ledger.Consumption{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN quantity ELSE -quantity END), 0)", ledger.DirectionConsume).
		Where("upstream_line_id = ? AND kind = ?", upstreamLineID, kind).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Ensure GormConsumptionRepository implements ledger.Repository
var _ ledger.Repository = (*GormConsumptionRepository)(nil)
