package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGormConsumptionRepository_Save(t *testing.T) {
	t.Run("saving no rows is a no-op", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConsumptionRepository(gormDB)

		err := repo.Save(context.Background())

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormConsumptionRepository_Exists(t *testing.T) {
	t.Run("reports an existing row", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConsumptionRepository(gormDB)

		lineID := uuid.New()
		rows := sqlmock.NewRows([]string{"count"}).AddRow(int64(1))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "quantity_consumptions" WHERE downstream_line_id = \$1 AND direction = \$2`).
			WithArgs(lineID, string(ledger.DirectionConsume)).
			WillReturnRows(rows)

		exists, err := repo.Exists(context.Background(), lineID, ledger.DirectionConsume)

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a missing row", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConsumptionRepository(gormDB)

		lineID := uuid.New()
		rows := sqlmock.NewRows([]string{"count"}).AddRow(int64(0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "quantity_consumptions"`).
			WithArgs(lineID, string(ledger.DirectionRelease)).
			WillReturnRows(rows)

		exists, err := repo.Exists(context.Background(), lineID, ledger.DirectionRelease)

		assert.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormConsumptionRepository_SumByUpstreamLine(t *testing.T) {
	t.Run("nets consume minus release", func(t *testing.T) {
		gormDB, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormConsumptionRepository(gormDB)

		lineID := uuid.New()
		rows := sqlmock.NewRows([]string{"coalesce"}).AddRow("35.5")
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN direction = \$1 THEN quantity ELSE -quantity END\), 0\) FROM "quantity_consumptions"`).
			WithArgs(string(ledger.DirectionConsume), lineID, string(document.KindReceived)).
			WillReturnRows(rows)

		sum, err := repo.SumByUpstreamLine(context.Background(), lineID, document.KindReceived)

		assert.NoError(t, err)
		assert.True(t, decimal.RequireFromString("35.5").Equal(sum))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
