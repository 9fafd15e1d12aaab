package ledger

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction marks a consumption row as taking from or giving back to the
// upstream line
type Direction string

const (
	DirectionConsume Direction = "CONSUME"
	DirectionRelease Direction = "RELEASE"
)

// Consumption is one immutable ledger row: a downstream line taking (or a
// cancelled downstream giving back) quantity from an upstream line. The
// rollup counters on document lines are the running sums of these rows.
type Consumption struct {
	ID                   uuid.UUID                `gorm:"type:uuid;primary_key"`
	UpstreamLineID       uuid.UUID                `gorm:"type:uuid;not null;index"`
	UpstreamDocumentID   uuid.UUID                `gorm:"type:uuid;not null;index"`
	DownstreamLineID     uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_consumptions_downstream_dir"`
	DownstreamDocumentID uuid.UUID                `gorm:"type:uuid;not null;index"`
	Kind                 document.ConsumptionKind `gorm:"type:varchar(20);not null"`
	Direction            Direction                `gorm:"type:varchar(10);not null;uniqueIndex:idx_consumptions_downstream_dir"`
	Quantity             decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	CreatedAt            time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Consumption) TableName() string {
	return "quantity_consumptions"
}

func newConsumption(upstream *document.Line, upstreamDocID uuid.UUID, downstream *document.Line, downstreamDocID uuid.UUID, kind document.ConsumptionKind, direction Direction, qty decimal.Decimal) (*Consumption, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeValidationFailed, "Ledger quantity must be positive")
	}
	return &Consumption{
		ID:                   uuid.New(),
		UpstreamLineID:       upstream.ID,
		UpstreamDocumentID:   upstreamDocID,
		DownstreamLineID:     downstream.ID,
		DownstreamDocumentID: downstreamDocID,
		Kind:                 kind,
		Direction:            direction,
		Quantity:             qty,
		CreatedAt:            time.Now(),
	}, nil
}

// Drift reports a mismatch between a line's rollup counter and the net of
// its ledger rows
type Drift struct {
	LineID  uuid.UUID                `json:"lineId"`
	Kind    document.ConsumptionKind `json:"kind"`
	Counter decimal.Decimal          `json:"counter"`
	Ledger  decimal.Decimal          `json:"ledger"`
}

// Repository defines persistence for consumption rows
type Repository interface {
	Save(ctx context.Context, rows ...*Consumption) error

	// FindByUpstreamLine lists all rows against one upstream line
	FindByUpstreamLine(ctx context.Context, upstreamLineID uuid.UUID) ([]*Consumption, error)

	// FindByDownstreamDocument lists all rows recorded by one downstream
	// document
	FindByDownstreamDocument(ctx context.Context, downstreamDocID uuid.UUID) ([]*Consumption, error)

	// Exists reports whether a row for this downstream line and direction
	// was already recorded
	Exists(ctx context.Context, downstreamLineID uuid.UUID, direction Direction) (bool, error)

	// SumByUpstreamLine nets CONSUME minus RELEASE for one upstream line
	// and kind
	SumByUpstreamLine(ctx context.Context, upstreamLineID uuid.UUID, kind document.ConsumptionKind) (decimal.Decimal, error)
}
