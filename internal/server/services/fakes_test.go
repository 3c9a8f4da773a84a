package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/dbx"
	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/records"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/sheet"
	"github.com/dmitrijs2005/punchclock/internal/server/storage"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type fakeRecords struct {
	mu     sync.Mutex
	rows   []models.AttendanceRecord
	nextID int64

	existsErr error
	insertErr error
	listErr   error
}

func (f *fakeRecords) Exists(ctx context.Context, username, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, r := range f.rows {
		if r.Username == username && r.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecords) Insert(ctx context.Context, r *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, x := range f.rows {
		if x.Key() == r.Key() {
			return fmt.Errorf("%w: %s on %s", common.ErrDuplicate, r.Username, r.Date)
		}
	}
	f.nextID++
	r.ID = f.nextID
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeRecords) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.AttendanceRecord(nil), f.rows...), nil
}

type fakeManager struct {
	repo *fakeRecords
}

func (m *fakeManager) Records(db dbx.DBTX) records.Repository { return m.repo }

type fakeSheet struct {
	mu   sync.Mutex
	rows []models.AttendanceRecord

	existsErr  error
	appendErr  error
	removeErr  error
	listErr    error
	rewriteErr error

	removed []models.Key
}

func (f *fakeSheet) Init(ctx context.Context) error { return nil }

func (f *fakeSheet) Exists(ctx context.Context, username, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, r := range f.rows {
		if r.Username == username && r.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSheet) Append(ctx context.Context, r models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	r.ID = 0
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeSheet) Remove(ctx context.Context, username, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, models.Key{Username: username, Date: date})
	if f.removeErr != nil {
		return f.removeErr
	}
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].Username == username && f.rows[i].Date == date {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeSheet) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.AttendanceRecord(nil), f.rows...), nil
}

func (f *fakeSheet) Rewrite(ctx context.Context, records []models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rewriteErr != nil {
		return f.rewriteErr
	}
	f.rows = nil
	for _, r := range records {
		r.ID = 0
		f.rows = append(f.rows, r)
	}
	return nil
}

func (f *fakeSheet) Path() string { return "fake.xlsx" }

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// bufLogger returns a debug-level JSON logger and the buffer it writes to.
func bufLogger(t *testing.T) (logging.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := logging.NewJSON(&buf, "debug")
	require.NoError(t, err)
	return l, &buf
}

type realStores struct {
	db      *storage.Database
	manager repomanager.RepositoryManager
	sheet   *sheet.Store
}

func newRealStores(t *testing.T) realStores {
	t.Helper()
	dir := t.TempDir()

	db, err := storage.Open(context.Background(), "sqlite", filepath.Join(dir, "registro_ponto.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sh := sheet.NewStore(filepath.Join(dir, "registro_ponto.xlsx"))
	require.NoError(t, sh.Init(context.Background()))

	return realStores{db: db, manager: repomanager.NewSQLRepositoryManager(db.Dialect), sheet: sh}
}
