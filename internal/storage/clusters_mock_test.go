package storage

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/dsyorkd/emr-controller/internal/errors"
	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
)

// newMockDB wires gorm over a sqlmock connection for driver-level
// failure injection that a real sqlite file cannot produce.
func newMockDB(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("select sqlite_version()")).
		WillReturnRows(sqlmock.NewRows([]string{"sqlite_version()"}).AddRow("3.25.0"))

	gormDB, err := gorm.Open(sqlite.Dialector{Conn: conn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return &Database{db: gormDB, logger: logger.Default()}, mock
}

func TestDatabase_UpdateCluster_DriverError(t *testing.T) {
	t.Run("should wrap the failure and keep the version token", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE `clusters`").
			WillReturnError(fmt.Errorf("disk I/O error"))
		mock.ExpectRollback()

		cluster := &models.Cluster{
			ID:          1,
			Identifier:  "test-cluster",
			Size:        1,
			SyncVersion: 3,
		}
		err := db.UpdateCluster(cluster)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrConflict)
		assert.Contains(t, err.Error(), "disk I/O error")

		// A failed write must not advance the in-memory token.
		assert.Equal(t, uint(3), cluster.SyncVersion)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
