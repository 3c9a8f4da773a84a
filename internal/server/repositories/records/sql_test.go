package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/dbx"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/server/storage"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) (*SQLRepository, *sql.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db.DB, db.Dialect), db.DB
}

func newMockRepo(t *testing.T, d dbx.Dialect) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, d), mock
}

func record(user, date, tm string) *models.AttendanceRecord {
	return &models.AttendanceRecord{Username: user, Date: date, Time: tm, SourceInfo: "OS-X"}
}

func TestSQLite_InsertExistsList(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "alice", "2024-05-01")
	require.NoError(t, err)
	assert.False(t, ok)

	first := record("alice", "2024-05-01", "08:00:00")
	require.NoError(t, repo.Insert(ctx, first))
	assert.NotZero(t, first.ID)

	second := record("bob", "2024-05-01", "08:05:00")
	require.NoError(t, repo.Insert(ctx, second))
	assert.Greater(t, second.ID, first.ID)

	ok, err = repo.Exists(ctx, "alice", "2024-05-01")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "alice", "2024-05-02")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{*first, *second}, list)
}

func TestSQLite_DuplicateIsErrDuplicate(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, record("alice", "2024-05-01", "08:00:00")))

	err := repo.Insert(ctx, record("alice", "2024-05-01", "17:30:00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicate)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "08:00:00", list[0].Time)
}

func TestSQLite_InsideRolledBackTx(t *testing.T) {
	repo, db := newSQLiteRepo(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := NewSQLRepository(tx, dbx.SQLite).Insert(ctx, record("alice", "2024-05-01", "08:00:00")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ok, err := repo.Exists(ctx, "alice", "2024-05-01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgres_InsertReturningID(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.Postgres)

	q := `(?s)^INSERT\s+INTO\s+ponto\s*\(username,\s*data,\s*hora,\s*windows_info\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id$`
	mock.ExpectQuery(q).
		WithArgs("alice", "2024-05-01", "08:00:00", "OS-X").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	rec := record("alice", "2024-05-01", "08:00:00")
	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.Equal(t, int64(42), rec.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.Postgres)

	mock.ExpectQuery(`INSERT\s+INTO\s+ponto`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ponto_username_data_key"})

	err := repo.Insert(context.Background(), record("alice", "2024-05-01", "08:00:00"))
	assert.ErrorIs(t, err, common.ErrDuplicate)
}

func TestPostgres_ExistsUsesNumberedPlaceholders(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.Postgres)

	q := `(?s)^SELECT\s+COUNT\(\*\)\s+FROM\s+ponto\s+WHERE\s+username\s*=\s*\$1\s+AND\s+data\s*=\s*\$2\s*$`
	mock.ExpectQuery(q).
		WithArgs("alice", "2024-05-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	ok, err := repo.Exists(context.Background(), "alice", "2024-05-01")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMySQL_InsertLastInsertID(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.MySQL)

	q := `(?s)^INSERT\s+INTO\s+ponto\s*\(username,\s*data,\s*hora,\s*windows_info\)\s*VALUES\s*\(\?,\s*\?,\s*\?,\s*\?\)\s*$`
	mock.ExpectExec(q).
		WithArgs("alice", "2024-05-01", "08:00:00", "OS-X").
		WillReturnResult(sqlmock.NewResult(7, 1))

	rec := record("alice", "2024-05-01", "08:00:00")
	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.Equal(t, int64(7), rec.ID)
}

func TestMySQL_DuplicateEntry(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.MySQL)

	mock.ExpectExec(`INSERT\s+INTO\s+ponto`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Insert(context.Background(), record("alice", "2024-05-01", "08:00:00"))
	assert.ErrorIs(t, err, common.ErrDuplicate)
}

func TestDBErrorsAreWrapped(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.MySQL)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT\s+COUNT`).WillReturnError(errors.New("db down"))
	_, err := repo.Exists(ctx, "alice", "2024-05-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
	assert.NotErrorIs(t, err, common.ErrDuplicate)

	mock.ExpectExec(`INSERT\s+INTO\s+ponto`).WillReturnError(errors.New("disk full"))
	err = repo.Insert(ctx, record("alice", "2024-05-01", "08:00:00"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrDuplicate)

	mock.ExpectQuery(`SELECT\s+id`).WillReturnError(errors.New("gone"))
	_, err = repo.List(ctx)
	require.Error(t, err)
}

func TestList_ScanError(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.SQLite)

	mock.ExpectQuery(`SELECT\s+id,\s*username`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "data", "hora", "windows_info"}).
			AddRow("not-a-number", "alice", "2024-05-01", "08:00:00", ""))

	_, err := repo.List(context.Background())
	require.Error(t, err)
}

func TestList_NullColumnsFromOlderSchema(t *testing.T) {
	repo, mock := newMockRepo(t, dbx.SQLite)

	mock.ExpectQuery(`SELECT\s+id,\s*username`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "data", "hora", "windows_info"}).
			AddRow(int64(1), "alice", "2024-05-01", "08:00:00", nil).
			AddRow(int64(2), "bob", "2024-05-01", nil, "OS-X"))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{
		{ID: 1, Username: "alice", Date: "2024-05-01", Time: "08:00:00"},
		{ID: 2, Username: "bob", Date: "2024-05-01", SourceInfo: "OS-X"},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("x")))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1045}))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
}
