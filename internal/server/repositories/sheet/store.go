// Package sheet keeps the attendance log as an .xlsx workbook: a header row
// followed by one row per clock-in on the active worksheet. Every change
// rewrites the whole file through a temp file and rename.
package sheet

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/filex"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/xuri/excelize/v2"
)

// Header is the first row of the workbook.
var Header = []string{"Username", "Data", "Hora", "Windows Info"}

// Repository is the tabular attendance store.
type Repository interface {
	Init(ctx context.Context) error
	Exists(ctx context.Context, username, date string) (bool, error)
	Append(ctx context.Context, r models.AttendanceRecord) error
	Remove(ctx context.Context, username, date string) error
	List(ctx context.Context) ([]models.AttendanceRecord, error)
	Rewrite(ctx context.Context, records []models.AttendanceRecord) error
	Path() string
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Init creates the workbook with its header when the file is absent, and
// checks that an existing file can be read.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := filex.Exists(s.path)
	if err != nil {
		return s.fail("stat", err)
	}
	if !ok {
		if err := filex.EnsureParentDir(s.path); err != nil {
			return s.fail("init", err)
		}
		return s.save(newWorkbook())
	}

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(activeSheet(f))
	if err != nil {
		return s.fail("read", err)
	}
	if len(rows) == 0 {
		if err := setRow(f, 1, Header); err != nil {
			return s.fail("write header", err)
		}
		return s.save(f)
	}
	return nil
}

// Exists scans every data row for the (username, date) pair.
func (s *Store) Exists(ctx context.Context, username, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows()
	if err != nil {
		return false, err
	}
	for _, row := range dataRows(rows) {
		if cell(row, 0) == username && cell(row, 1) == date {
			return true, nil
		}
	}
	return false, nil
}

// Append adds r after the last row. A missing workbook is created first.
func (s *Store) Append(ctx context.Context, r models.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openOrCreate()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(activeSheet(f))
	if err != nil {
		return s.fail("read", err)
	}
	next := len(rows) + 1
	if len(rows) == 0 {
		if err := setRow(f, 1, Header); err != nil {
			return s.fail("write header", err)
		}
		next = 2
	}
	if err := setRow(f, next, toRow(r)); err != nil {
		return s.fail("append", err)
	}
	return s.save(f)
}

// Remove deletes the last row holding the (username, date) pair. It undoes
// an Append whose relational counterpart could not be committed.
func (s *Store) Remove(ctx context.Context, username, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := activeSheet(f)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return s.fail("read", err)
	}

	for i := len(rows) - 1; i >= 1; i-- {
		if cell(rows[i], 0) == username && cell(rows[i], 1) == date {
			if err := f.RemoveRow(sheet, i+1); err != nil {
				return s.fail("remove row", err)
			}
			return s.save(f)
		}
	}
	return fmt.Errorf("sheet row %s on %s: %w", username, date, common.ErrNotFound)
}

// List returns every data row in file order. Rows read back have ID 0.
func (s *Store) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.rows()
	if err != nil {
		return nil, err
	}

	data := dataRows(rows)
	out := make([]models.AttendanceRecord, 0, len(data))
	for _, row := range data {
		if cell(row, 0) == "" && cell(row, 1) == "" {
			continue
		}
		out = append(out, models.AttendanceRecord{
			Username:   cell(row, 0),
			Date:       cell(row, 1),
			Time:       cell(row, 2),
			SourceInfo: cell(row, 3),
		})
	}
	return out, nil
}

// Rewrite replaces the workbook with a header followed by records.
func (s *Store) Rewrite(ctx context.Context, records []models.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := filex.EnsureParentDir(s.path); err != nil {
		return s.fail("rewrite", err)
	}

	f := newWorkbook()
	defer f.Close()
	for i, r := range records {
		if err := setRow(f, i+2, toRow(r)); err != nil {
			return s.fail("rewrite", err)
		}
	}
	return s.save(f)
}

func (s *Store) rows() ([][]string, error) {
	f, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(activeSheet(f))
	if err != nil {
		return nil, s.fail("read", err)
	}
	return rows, nil
}

func (s *Store) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, s.fail("open", err)
	}
	return f, nil
}

func (s *Store) openOrCreate() (*excelize.File, error) {
	ok, err := filex.Exists(s.path)
	if err != nil {
		return nil, s.fail("stat", err)
	}
	if !ok {
		if err := filex.EnsureParentDir(s.path); err != nil {
			return nil, s.fail("create", err)
		}
		return newWorkbook(), nil
	}
	return s.open()
}

func (s *Store) save(f *excelize.File) error {
	err := filex.ReplaceFile(s.path, func(tmp string) error {
		out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o660)
		if err != nil {
			return err
		}
		if _, err := f.WriteTo(out); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	})
	if err != nil {
		return s.fail("save", err)
	}
	return nil
}

func (s *Store) fail(op string, err error) error {
	return fmt.Errorf("%w: sheet %s %s: %w", common.ErrPersistence, op, s.path, err)
}

func newWorkbook() *excelize.File {
	f := excelize.NewFile()
	_ = setRow(f, 1, Header)
	return f
}

func activeSheet(f *excelize.File) string {
	return f.GetSheetName(f.GetActiveSheetIndex())
}

func setRow(f *excelize.File, row int, values []string) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(activeSheet(f), axis, &cells)
}

func toRow(r models.AttendanceRecord) []string {
	return []string{r.Username, r.Date, r.Time, r.SourceInfo}
}

func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
