package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"ganetisphere/pkg/log"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	return NewRepository(&log.Logger{Logger: zap.NewNop()}, db), mock
}

func TestUpdateCachedAtTouchesSingleColumn(t *testing.T) {
	repo, mock := setupRepository(t)
	clusterRepo := NewClusterRepository(repo)

	cachedAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `ganeti_cluster` SET `cached_at`=? WHERE id = ?")).
		WithArgs(cachedAt, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := clusterRepo.UpdateCachedAt(context.Background(), 42, cachedAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateColumnsRejectsCacheColumns(t *testing.T) {
	repo, _ := setupRepository(t)
	clusterRepo := NewClusterRepository(repo)

	for _, col := range []string{"hash", "serialized_info", "mtime", "cached_at", "ignore_cache"} {
		err := clusterRepo.UpdateColumns(context.Background(), 1, map[string]interface{}{col: "x"})
		assert.ErrorIs(t, err, ErrReservedColumn, col)
	}
}

func TestUpdateColumnsAllowsPlainColumns(t *testing.T) {
	repo, mock := setupRepository(t)
	clusterRepo := NewClusterRepository(repo)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `ganeti_cluster` SET `description`=? WHERE id = ?")).
		WithArgs("staging", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := clusterRepo.UpdateColumns(context.Background(), 1, map[string]interface{}{"description": "staging"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCredentials(t *testing.T) {
	repo, mock := setupRepository(t)
	clusterRepo := NewClusterRepository(repo)

	rows := sqlmock.NewRows([]string{"hash", "hostname", "port", "username", "password"}).
		AddRow("abc123", "ganeti.example.org", 5080, "admin", "secret")
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT hash, hostname, port, username, password FROM `ganeti_cluster` WHERE id = ?")).
		WithArgs(int64(7), 1).
		WillReturnRows(rows)

	creds, err := clusterRepo.GetCredentials(context.Background(), 7)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", creds.Hash)
	assert.Equal(t, "ganeti.example.org", creds.Hostname)
	assert.Equal(t, 5080, creds.Port)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCredentialsNotFound(t *testing.T) {
	repo, mock := setupRepository(t)
	clusterRepo := NewClusterRepository(repo)

	mock.ExpectQuery("SELECT hash, hostname, port, username, password").
		WillReturnRows(sqlmock.NewRows([]string{"hash", "hostname", "port", "username", "password"}))

	creds, err := clusterRepo.GetCredentials(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, creds)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := setupRepository(t)
	clusterRepo := NewClusterRepository(repo)

	mock.ExpectQuery("SELECT \\* FROM `ganeti_cluster`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	cluster, err := clusterRepo.GetByID(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, cluster)
}
