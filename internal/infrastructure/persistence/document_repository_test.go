package persistence

import (
	"context"
	"testing"

	"github.com/erp/backoffice/internal/domain/derive"
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database for repository round-trips. The
// single connection keeps the schema alive for the whole test.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&document.Document{}, &document.Line{},
		&finance.PartyBalance{}, &finance.BalanceTransaction{},
	))
	return db
}

func newStoredDocument(t *testing.T) *document.Document {
	t.Helper()
	doc, err := document.New(document.TypePurchaseOrder, "PO-2026-000001", uuid.New(), "Globex Supply", uuid.New())
	require.NoError(t, err)
	_, err = doc.AddLine(nil, "Steel bolts M8", decimal.NewFromInt(100), decimal.RequireFromString("10.00"), derive.NoDiscount(), decimal.NewFromInt(10))
	require.NoError(t, err)
	return doc
}

func TestGormDocumentRepository_RoundTrip(t *testing.T) {
	repo := NewGormDocumentRepository(newSQLiteDB(t))
	ctx := context.Background()

	doc := newStoredDocument(t)
	require.NoError(t, repo.SaveWithLock(ctx, doc))

	loaded, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Number, loaded.Number)
	assert.Equal(t, doc.GetVersion(), loaded.GetVersion())
	require.Len(t, loaded.Lines, 1)
	assert.Equal(t, "Steel bolts M8", loaded.Lines[0].Description)

	byNumber, err := repo.FindByNumber(ctx, document.TypePurchaseOrder, doc.Number)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, byNumber.ID)
}

func TestGormDocumentRepository_SaveWithLock_VersionBump(t *testing.T) {
	repo := NewGormDocumentRepository(newSQLiteDB(t))
	ctx := context.Background()

	doc := newStoredDocument(t)
	require.NoError(t, repo.SaveWithLock(ctx, doc))
	storedVersion := doc.GetVersion()

	loaded, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	loaded.SetNotes("rush order")
	require.NoError(t, repo.SaveWithLock(ctx, loaded))
	assert.Equal(t, storedVersion+1, loaded.GetVersion())

	reloaded, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "rush order", reloaded.Notes)
}

func TestGormDocumentRepository_SaveWithLock_Stale(t *testing.T) {
	repo := NewGormDocumentRepository(newSQLiteDB(t))
	ctx := context.Background()

	doc := newStoredDocument(t)
	require.NoError(t, repo.SaveWithLock(ctx, doc))

	first, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)

	first.SetNotes("first writer")
	require.NoError(t, repo.SaveWithLock(ctx, first))

	second.SetNotes("second writer")
	err = repo.SaveWithLock(ctx, second)
	assert.True(t, shared.HasCode(err, shared.CodeStaleState))
}

func TestGormDocumentRepository_FindByFilter(t *testing.T) {
	repo := NewGormDocumentRepository(newSQLiteDB(t))
	ctx := context.Background()

	po := newStoredDocument(t)
	require.NoError(t, repo.SaveWithLock(ctx, po))

	invoice, err := document.New(document.TypeARInvoice, "INV-2026-000001", uuid.New(), "Acme", uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, invoice))

	docType := document.TypePurchaseOrder
	result, err := repo.FindByFilter(ctx, document.Filter{
		Filter: shared.DefaultFilter(),
		Type:   &docType,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, po.ID, result.Items[0].ID)
}

func TestGormDocumentRepository_Delete(t *testing.T) {
	repo := NewGormDocumentRepository(newSQLiteDB(t))
	ctx := context.Background()

	doc := newStoredDocument(t)
	require.NoError(t, repo.SaveWithLock(ctx, doc))

	require.NoError(t, repo.Delete(ctx, doc.ID))

	_, err := repo.FindByID(ctx, doc.ID)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))

	// Soft delete keeps the number reserved
	var count int64
	require.NoError(t, repo.db.Unscoped().Model(&document.Document{}).Where("id = ?", doc.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, shared.ErrNotFound, repo.Delete(ctx, uuid.New()))
}
