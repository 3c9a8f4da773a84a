// Package storage opens the relational attendance database for one of the
// supported drivers and brings its schema up to date with the embedded
// goose migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/punchclock/internal/dbx"
	"github.com/dmitrijs2005/punchclock/internal/filex"
	"github.com/dmitrijs2005/punchclock/internal/server/migrations"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// driver describes how a configured driver name maps onto database/sql
// and goose.
type driver struct {
	sqlName   string
	goose     string
	dialect   dbx.Dialect
	singleton bool
}

var drivers = map[string]driver{
	"sqlite":   {sqlName: "sqlite", goose: "sqlite3", dialect: dbx.SQLite, singleton: true},
	"postgres": {sqlName: "pgx", goose: "postgres", dialect: dbx.Postgres},
	"mysql":    {sqlName: "mysql", goose: "mysql", dialect: dbx.MySQL},
}

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{"sqlite", "postgres", "mysql"}
}

// Database is an open, migrated relational store.
type Database struct {
	DB      *sql.DB
	Dialect dbx.Dialect
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// Open connects to the database named by driverName and dsn, verifies the
// connection and runs the migrations for its dialect.
func Open(ctx context.Context, driverName, dsn string) (*Database, error) {
	drv, ok := drivers[driverName]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q (want one of %s)", driverName, strings.Join(Drivers(), ", "))
	}

	if drv.dialect == dbx.SQLite {
		if path := sqlitePath(dsn); path != "" {
			if err := filex.EnsureParentDir(path); err != nil {
				return nil, err
			}
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlOpen(drv.sqlName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory:
	// databases alive across calls.
	if drv.singleton {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := CheckDuplicateDays(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(ctx, db, drv.goose, string(drv.dialect)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &Database{DB: db, Dialect: drv.dialect}, nil
}

// ErrDuplicateDays is returned by Open when an existing ponto table holds
// more than one row for the same user and day. The unique index cannot be
// built until an operator resolves them.
var ErrDuplicateDays = errors.New("ponto has several rows for the same username and day")

// maxReportedPairs caps how many offending pairs the error names.
const maxReportedPairs = 20

// CheckDuplicateDays fails with ErrDuplicateDays, naming the offending
// (username, data) pairs, when a ponto table left by an older deployment
// would violate the once-per-day index. A missing table passes.
func CheckDuplicateDays(ctx context.Context, db *sql.DB) error {
	tbl, err := db.QueryContext(ctx, `SELECT 1 FROM ponto WHERE 1 = 0`)
	if err != nil {
		return nil
	}
	_ = tbl.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT username, data, COUNT(*) FROM ponto
		 WHERE username IS NOT NULL AND data IS NOT NULL
		 GROUP BY username, data
		 HAVING COUNT(*) > 1
		 ORDER BY data, username`)
	if err != nil {
		return fmt.Errorf("db duplicate check error: %w", err)
	}
	defer rows.Close()

	var (
		pairs []string
		total int
	)
	for rows.Next() {
		var (
			username, date string
			n              int64
		)
		if err := rows.Scan(&username, &date, &n); err != nil {
			return fmt.Errorf("db duplicate check error: %w", err)
		}
		total++
		if len(pairs) < maxReportedPairs {
			pairs = append(pairs, fmt.Sprintf("%s/%s (%d rows)", username, date, n))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db duplicate check error: %w", err)
	}

	if total == 0 {
		return nil
	}
	if total > len(pairs) {
		pairs = append(pairs, fmt.Sprintf("and %d more", total-len(pairs)))
	}
	return fmt.Errorf("%w: %s", ErrDuplicateDays, strings.Join(pairs, ", "))
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// RunMigrations sets up goose with the embedded migrations and applies the
// ones in dir using the given goose dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return err
	}
	return nil
}

// sqlitePath extracts the file path from a SQLite DSN; in-memory
// databases have none.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

// sqliteDSN adds a busy timeout unless the DSN already sets pragmas.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}
