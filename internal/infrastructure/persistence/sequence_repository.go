package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backoffice/internal/domain/numbering"
	"gorm.io/gorm"
)

// Sequence is one named counter row, scoped per document type and year
type Sequence struct {
	Scope     string    `gorm:"type:varchar(50);primary_key"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Sequence) TableName() string {
	return "sequences"
}

// GormSequenceRepository implements numbering.SequenceRepository using an
// atomic upsert. Two concurrent callers can never draw the same value.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next atomically increments and returns the counter for a scope. It runs
// on its own connection, outside any caller transaction: a rolled-back
// create leaves a gap in the sequence instead of serializing all creates
// on the counter row.
func (r *GormSequenceRepository) Next(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO sequences (scope, value, updated_at)
		VALUES (?, 1, NOW())
		ON CONFLICT (scope)
		DO UPDATE SET value = sequences.value + 1, updated_at = NOW()
		RETURNING value`, scope).
		Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Current returns the last issued value for a scope, zero if none
func (r *GormSequenceRepository) Current(ctx context.Context, scope string) (int64, error) {
	var seq Sequence
	err := r.db.WithContext(ctx).
		Where("scope = ?", scope).
		First(&seq).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return seq.Value, nil
}

// Ensure GormSequenceRepository implements numbering.SequenceRepository
var _ numbering.SequenceRepository = (*GormSequenceRepository)(nil)
