package services

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"sync"

	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/sheet"
)

// Report describes how the two stores differ.
type Report struct {
	RelationalRecords int
	TabularRecords    int

	OnlyTabular       []models.Key
	OnlyRelational    []models.Key
	TabularDuplicates []models.Key
}

// Consistent reports whether both stores hold the same set of records.
func (r Report) Consistent() bool {
	return len(r.OnlyTabular) == 0 && len(r.OnlyRelational) == 0 && len(r.TabularDuplicates) == 0
}

// ConsistencyService compares the stores and can rebuild the workbook from
// the relational store. It never changes the relational store.
type ConsistencyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sheet       sheet.Repository
	logger      logging.Logger
	lock        sync.Locker
}

// NewConsistencyService builds the service. lock, when not nil, is held
// while reading or rewriting the stores.
func NewConsistencyService(db *sql.DB, repomanager repomanager.RepositoryManager, sheet sheet.Repository, logger logging.Logger, lock sync.Locker) *ConsistencyService {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &ConsistencyService{
		db:          db,
		repomanager: repomanager,
		sheet:       sheet,
		logger:      logger.With("module", "consistency"),
		lock:        lock,
	}
}

func (s *ConsistencyService) Check(ctx context.Context) (Report, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	relational, err := s.repomanager.Records(s.db).List(ctx)
	if err != nil {
		return Report{}, persistence("relational list", err)
	}
	tabular, err := s.sheet.List(ctx)
	if err != nil {
		return Report{}, persistence("sheet list", err)
	}

	rep := Report{RelationalRecords: len(relational), TabularRecords: len(tabular)}

	inDB := make(map[models.Key]struct{}, len(relational))
	for _, r := range relational {
		inDB[r.Key()] = struct{}{}
	}

	seen := make(map[models.Key]int, len(tabular))
	for _, r := range tabular {
		k := r.Key()
		seen[k]++
		switch seen[k] {
		case 1:
			if _, ok := inDB[k]; !ok {
				rep.OnlyTabular = append(rep.OnlyTabular, k)
			}
		case 2:
			rep.TabularDuplicates = append(rep.TabularDuplicates, k)
		}
	}

	for _, r := range relational {
		if _, ok := seen[r.Key()]; !ok {
			rep.OnlyRelational = append(rep.OnlyRelational, r.Key())
		}
	}

	sortKeys(rep.OnlyTabular)
	sortKeys(rep.OnlyRelational)
	sortKeys(rep.TabularDuplicates)

	return rep, nil
}

// Rebuild rewrites the workbook from the relational store and returns the
// number of rows written.
func (s *ConsistencyService) Rebuild(ctx context.Context) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	records, err := s.repomanager.Records(s.db).List(ctx)
	if err != nil {
		return 0, persistence("relational list", err)
	}
	if err := s.sheet.Rewrite(ctx, records); err != nil {
		return 0, persistence("sheet rewrite", err)
	}

	s.logger.Info(ctx, "sheet rebuilt from relational store", "records", len(records), "path", s.sheet.Path())
	return len(records), nil
}

// LogReport writes rep at info level when the stores agree and at warn
// level otherwise.
func (s *ConsistencyService) LogReport(ctx context.Context, rep Report) {
	if rep.Consistent() {
		s.logger.Info(ctx, "stores consistent", "records", rep.RelationalRecords)
		return
	}
	s.logger.Warn(ctx, "stores diverged",
		"relational_records", rep.RelationalRecords,
		"sheet_records", rep.TabularRecords,
		"only_sheet", rep.OnlyTabular,
		"only_relational", rep.OnlyRelational,
		"sheet_duplicates", rep.TabularDuplicates)
}

func sortKeys(keys []models.Key) {
	slices.SortFunc(keys, func(a, b models.Key) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
}
