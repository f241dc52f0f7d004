package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockReceptionRepository creates a repository with a mocked DB
func newMockReceptionRepository(t *testing.T) (*GormReceptionRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormReceptionRepository(gormDB), mock, mockDB
}

// createTestReception builds a standalone reception into a warehouse
func createTestReception(t *testing.T) *procurement.Reception {
	t.Helper()

	reception, err := procurement.NewReception(
		uuid.New(), "REC-2026-00001", nil, nil, stock.WarehouseLocation(uuid.New()))
	require.NoError(t, err)
	return reception
}

func TestGormReceptionRepository_FindByIDForTenant(t *testing.T) {
	t.Run("returns reception with lines when found", func(t *testing.T) {
		repo, mock, mockDB := newMockReceptionRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		receptionID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "reception_number", "status", "version"}).
			AddRow(receptionID, tenantID, "REC-2026-00009", "PENDING_QUALITY_CHECK", 1)
		mock.ExpectQuery(`SELECT \* FROM "receptions" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, receptionID, 1).
			WillReturnRows(rows)

		lineRows := sqlmock.NewRows([]string{"id", "reception_id", "product_id", "quantity", "active"}).
			AddRow(uuid.New(), receptionID, uuid.New(), "5", true)
		mock.ExpectQuery(`SELECT \* FROM "reception_lines" WHERE "reception_lines"\."reception_id" = \$1`).
			WithArgs(receptionID).
			WillReturnRows(lineRows)

		reception, err := repo.FindByIDForTenant(context.Background(), tenantID, receptionID)

		require.NoError(t, err)
		assert.Equal(t, receptionID, reception.ID)
		assert.Equal(t, procurement.ReceptionStatusPendingQualityCheck, reception.Status)
		assert.Len(t, reception.Lines, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when reception does not exist", func(t *testing.T) {
		repo, mock, mockDB := newMockReceptionRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		receptionID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "receptions" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, receptionID, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByIDForTenant(context.Background(), tenantID, receptionID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReceptionRepository_CountActiveByOrder(t *testing.T) {
	repo, mock, mockDB := newMockReceptionRepository(t)
	defer mockDB.Close()

	tenantID := uuid.New()
	orderID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "receptions" WHERE tenant_id = \$1 AND order_id = \$2 AND status <> \$3`).
		WithArgs(tenantID, orderID, procurement.ReceptionStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveByOrder(context.Background(), tenantID, orderID)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormReceptionRepository_SumActiveReceivedByOrderLine(t *testing.T) {
	t.Run("sums active lines across receptions", func(t *testing.T) {
		repo, mock, mockDB := newMockReceptionRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		orderLineID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(reception_lines.quantity\), 0\) FROM "reception_lines" JOIN receptions ON receptions.id = reception_lines.reception_id WHERE receptions.tenant_id = \$1 AND reception_lines.order_line_id = \$2 AND reception_lines.active = \$3`).
			WithArgs(tenantID, orderLineID, true).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("12.5"))

		total, err := repo.SumActiveReceivedByOrderLine(context.Background(), tenantID, orderLineID, nil)

		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("12.5").Equal(total))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves out the excluded reception", func(t *testing.T) {
		repo, mock, mockDB := newMockReceptionRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		orderLineID := uuid.New()
		excluded := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(reception_lines.quantity\), 0\) FROM "reception_lines" JOIN receptions ON receptions.id = reception_lines.reception_id WHERE .* reception_lines.reception_id <> \$4`).
			WithArgs(tenantID, orderLineID, true, excluded).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("4"))

		total, err := repo.SumActiveReceivedByOrderLine(context.Background(), tenantID, orderLineID, &excluded)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(4).Equal(total))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns zero when nothing was received", func(t *testing.T) {
		repo, mock, mockDB := newMockReceptionRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		orderLineID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(reception_lines.quantity\), 0\) FROM "reception_lines"`).
			WithArgs(tenantID, orderLineID, true).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

		total, err := repo.SumActiveReceivedByOrderLine(context.Background(), tenantID, orderLineID, nil)

		require.NoError(t, err)
		assert.True(t, total.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReceptionRepository_SaveWithLock(t *testing.T) {
	t.Run("upserts lines without deleting inactive rows", func(t *testing.T) {
		repo, mock, mockDB := newMockReceptionRepository(t)
		defer mockDB.Close()

		reception := createTestReception(t)
		_, err := reception.AddLine(uuid.New(), nil, nil, decimal.NewFromInt(5), decimal.NewFromInt(2))
		require.NoError(t, err)
		versionBefore := reception.Version

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "receptions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "reception_lines" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.SaveWithLock(context.Background(), reception)

		require.NoError(t, err)
		assert.Equal(t, versionBefore+1, reception.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrConcurrencyConflict and restores the version on stale write", func(t *testing.T) {
		repo, mock, mockDB := newMockReceptionRepository(t)
		defer mockDB.Close()

		reception := createTestReception(t)
		versionBefore := reception.Version

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "receptions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), reception)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, versionBefore, reception.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormReceptionRepository_ExistsByReceptionNumber(t *testing.T) {
	repo, mock, mockDB := newMockReceptionRepository(t)
	defer mockDB.Close()

	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "receptions" WHERE tenant_id = \$1 AND reception_number = \$2`).
		WithArgs(tenantID, "REC-2026-00001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByReceptionNumber(context.Background(), tenantID, "REC-2026-00001")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
