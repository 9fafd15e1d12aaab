package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a read-only catalog reference. The catalog itself is owned by
// a collaborator system; the workflow engine only consults it for line
// defaults when a request names a product but omits description, price or
// tax rate.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	SKU       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name      string          `gorm:"type:varchar(200);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// Repository provides read access to catalog products
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
}
