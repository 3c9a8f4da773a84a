// Package records implements the relational attendance store over
// database/sql for SQLite, PostgreSQL and MySQL.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/punchclock/internal/common"
	"github.com/dmitrijs2005/punchclock/internal/dbx"
	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Exists(ctx context.Context, username, date string) (bool, error) {
	query := dbx.Rebind(r.dialect,
		`SELECT COUNT(*) FROM ponto
		 WHERE username = ? AND data = ?
		 `)

	var n int64
	if err := r.db.QueryRowContext(ctx, query, username, date).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

func (r *SQLRepository) Insert(ctx context.Context, rec *models.AttendanceRecord) error {
	query := dbx.Rebind(r.dialect,
		`INSERT INTO ponto (username, data, hora, windows_info)
		 VALUES (?, ?, ?, ?)
		 `)
	args := []any{rec.Username, rec.Date, rec.Time, rec.SourceInfo}

	if r.dialect == dbx.Postgres {
		err := r.db.QueryRowContext(ctx, query+` RETURNING id`, args...).Scan(&rec.ID)
		if err != nil {
			return r.insertError(rec, err)
		}
		return nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return r.insertError(rec, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rec.ID = id

	return nil
}

func (r *SQLRepository) insertError(rec *models.AttendanceRecord, err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s on %s", common.ErrDuplicate, rec.Username, rec.Date)
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *SQLRepository) List(ctx context.Context) ([]models.AttendanceRecord, error) {
	query :=
		`SELECT id, username, data, hora, windows_info FROM ponto
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		// Tables created by earlier deployments allow NULL in every column.
		var (
			id                         int64
			username, date, tm, source sql.NullString
		)
		if err := rows.Scan(&id, &username, &date, &tm, &source); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, models.AttendanceRecord{
			ID:         id,
			Username:   username.String,
			Date:       date.String,
			Time:       tm.String,
			SourceInfo: source.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

// IsUniqueViolation reports whether err is a unique-constraint failure from
// any of the supported drivers.
func IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	return false
}
