// Package repomanager vends repository implementations bound to either a
// database handle or a transaction, so services can run the same code
// inside and outside dbx.WithTx.
package repomanager

import (
	"github.com/dmitrijs2005/punchclock/internal/dbx"
	"github.com/dmitrijs2005/punchclock/internal/server/repositories/records"
)

type RepositoryManager interface {
	Records(db dbx.DBTX) records.Repository
}

// SQLRepositoryManager builds SQL repositories for one dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func NewSQLRepositoryManager(dialect dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

// Records returns a records.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewSQLRepository(db, m.dialect)
}
