package records

import (
	"context"

	"github.com/dmitrijs2005/punchclock/internal/models"
)

// Repository is the relational attendance store.
type Repository interface {
	// Exists reports whether username already clocked in on date (YYYY-MM-DD).
	Exists(ctx context.Context, username, date string) (bool, error)
	// Insert stores r and sets r.ID. A second record for the same
	// (username, date) fails with common.ErrDuplicate.
	Insert(ctx context.Context, r *models.AttendanceRecord) error
	// List returns every record in insertion order.
	List(ctx context.Context) ([]models.AttendanceRecord, error)
}
