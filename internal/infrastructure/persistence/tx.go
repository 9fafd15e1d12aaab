package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

type txContextKey struct{}

// GormTxRunner implements shared.TxRunner on a GORM connection. The open
// transaction travels in the context; the repositories in this package
// route their statements through it, so a workflow action that touches
// documents, balances and ledger rows commits them as one unit and its
// FOR UPDATE locks hold until the commit.
type GormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner creates a new GormTxRunner
func NewGormTxRunner(db *gorm.DB) *GormTxRunner {
	return &GormTxRunner{db: db}
}

// InTx runs fn inside a transaction. A nested call joins the transaction
// already carried by the context instead of opening a savepoint.
func (r *GormTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx
}

// Ensure GormTxRunner implements shared.TxRunner
var _ shared.TxRunner = (*GormTxRunner)(nil)
