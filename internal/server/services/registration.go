package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/dbx"
	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/sheet"
)

// RegistrationService records clock-ins in both stores. The relational
// store is authoritative; the workbook follows it.
type RegistrationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sheet       sheet.Repository
	logger      logging.Logger

	// mu serializes the duplicate check with the write that follows it.
	mu sync.Mutex
}

func NewRegistrationService(db *sql.DB, repomanager repomanager.RepositoryManager, sheet sheet.Repository, logger logging.Logger) *RegistrationService {
	return &RegistrationService{
		db:          db,
		repomanager: repomanager,
		sheet:       sheet,
		logger:      logger.With("module", "registration"),
	}
}

// Locker exposes the lock held during a registration so maintenance tasks
// can exclude concurrent writes.
func (s *RegistrationService) Locker() sync.Locker {
	return &s.mu
}

// Register stores one clock-in. It fails with common.ErrDuplicate when the
// user already has a record for the event's date, and with
// common.ErrPersistence when either store cannot be read or written.
func (s *RegistrationService) Register(ctx context.Context, e models.ClockEvent) (*models.AttendanceRecord, error) {
	rec := models.NewAttendanceRecord(e)

	s.mu.Lock()
	defer s.mu.Unlock()

	dup, err := s.exists(ctx, rec.Username, rec.Date)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fmt.Errorf("%w: %s on %s", common.ErrDuplicate, rec.Username, rec.Date)
	}

	appended := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Records(tx).Insert(ctx, &rec); err != nil {
			if errors.Is(err, common.ErrDuplicate) {
				return err
			}
			return persistence("relational insert", err)
		}
		if err := s.sheet.Append(ctx, rec); err != nil {
			return persistence("sheet append", err)
		}
		appended = true
		return nil
	})

	if err != nil {
		if appended {
			s.compensate(ctx, rec, err)
			return nil, persistence("commit", err)
		}
		if errors.Is(err, common.ErrDuplicate) || errors.Is(err, common.ErrPersistence) {
			return nil, err
		}
		return nil, persistence("transaction", err)
	}

	s.logger.Debug(ctx, "record stored", "id", rec.ID, "username", rec.Username, "date", rec.Date, "time", rec.Time)
	return &rec, nil
}

// compensate removes the workbook row whose relational twin was not
// committed.
func (s *RegistrationService) compensate(ctx context.Context, rec models.AttendanceRecord, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.sheet.Remove(ctx, rec.Username, rec.Date); err != nil {
		s.logger.Error(ctx, "stores diverged: sheet row kept after failed commit",
			"username", rec.Username, "date", rec.Date, "commit_error", cause, "error", err)
		return
	}
	s.logger.Warn(ctx, "sheet row removed after failed commit",
		"username", rec.Username, "date", rec.Date, "commit_error", cause)
}

// Exists reports whether username already has a record on date in either
// store.
func (s *RegistrationService) Exists(ctx context.Context, username, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exists(ctx, username, date)
}

func (s *RegistrationService) exists(ctx context.Context, username, date string) (bool, error) {
	inDB, err := s.repomanager.Records(s.db).Exists(ctx, username, date)
	if err != nil {
		return false, persistence("relational lookup", err)
	}

	inSheet, err := s.sheet.Exists(ctx, username, date)
	if err != nil {
		return false, persistence("sheet lookup", err)
	}

	if inDB != inSheet {
		s.logger.Warn(ctx, "stores diverged: record present in one store only",
			"username", username, "date", date, "relational", inDB, "sheet", inSheet)
	}

	return inDB || inSheet, nil
}

func persistence(op string, err error) error {
	if errors.Is(err, common.ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrPersistence, op, err)
}
