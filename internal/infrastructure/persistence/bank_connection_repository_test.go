package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/inmova/backend/internal/domain/banking"
	"github.com/inmova/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockConnectionRepository creates a GormBankConnectionRepository with a mocked SQL connection
func newMockConnectionRepository(t *testing.T) (*GormBankConnectionRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormBankConnectionRepository(gormDB), mock, mockDB
}

func TestGormBankConnectionRepository_FindByID(t *testing.T) {
	t.Run("finds existing connection", func(t *testing.T) {
		repo, mock, mockDB := newMockConnectionRepository(t)
		defer mockDB.Close()

		connectionID := uuid.New()
		companyID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "company_id", "provider", "institution", "status"}).
			AddRow(connectionID, companyID, "gocardless", "Banco Santander", "ACTIVE")

		mock.ExpectQuery(`SELECT \* FROM "bank_connections" WHERE company_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(companyID, connectionID, 1).
			WillReturnRows(rows)

		conn, err := repo.FindByID(context.Background(), companyID, connectionID)

		assert.NoError(t, err)
		require.NotNil(t, conn)
		assert.Equal(t, connectionID, conn.ID)
		assert.Equal(t, "gocardless", conn.Provider)
		assert.Equal(t, banking.ConnectionStatusActive, conn.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing connection", func(t *testing.T) {
		repo, mock, mockDB := newMockConnectionRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		connectionID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "bank_connections"`).
			WithArgs(companyID, connectionID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		conn, err := repo.FindByID(context.Background(), companyID, connectionID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Nil(t, conn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database errors", func(t *testing.T) {
		repo, mock, mockDB := newMockConnectionRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "bank_connections"`).
			WillReturnError(assert.AnError)

		conn, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())

		assert.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, conn)
	})
}

func TestGormBankConnectionRepository_TouchSync(t *testing.T) {
	t.Run("updates existing connection", func(t *testing.T) {
		repo, mock, mockDB := newMockConnectionRepository(t)
		defer mockDB.Close()

		companyID := uuid.New()
		connectionID := uuid.New()

		mock.ExpectExec(`UPDATE "bank_connections" SET .* WHERE company_id = \$\d AND id = \$\d`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.TouchSync(context.Background(), companyID, connectionID, time.Now())

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when no rows updated", func(t *testing.T) {
		repo, mock, mockDB := newMockConnectionRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "bank_connections"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.TouchSync(context.Background(), uuid.New(), uuid.New(), time.Now())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormBankConnectionRepository_MarkStatus(t *testing.T) {
	t.Run("rejects invalid status without touching the database", func(t *testing.T) {
		repo, mock, mockDB := newMockConnectionRepository(t)
		defer mockDB.Close()

		err := repo.MarkStatus(context.Background(), uuid.New(), uuid.New(), banking.ConnectionStatus("BROKEN"))

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies a valid transition", func(t *testing.T) {
		repo, mock, mockDB := newMockConnectionRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "bank_connections" SET .* WHERE company_id = \$\d AND id = \$\d`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.MarkStatus(context.Background(), uuid.New(), uuid.New(), banking.ConnectionStatusExpired)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
