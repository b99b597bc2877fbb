package store

import (
	"context"
	"errors"

	"github.com/boscod/scanpresence/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a concurrent writer already created the
	// per-day record; the caller lost the race and should re-read.
	ErrConflict = errors.New("store: conflicting concurrent write")
)

// AttendanceStore is the narrow surface the scan pipeline consumes from the
// external record store. CRUD screens, rosters and reporting live elsewhere.
type AttendanceStore interface {
	FindEmployeeByCode(ctx context.Context, code string) (*models.Employee, error)
	GetDailyAttendance(ctx context.Context, employeeID uuid.UUID, day string) (*models.DailyAttendance, error)
	// UpsertDailyAttendance inserts the record if it has no ID yet, returning
	// ErrConflict when another writer created the same (employee, day) row
	// first. Updates re-apply phase timestamps idempotently: a column that is
	// already set keeps its stored value.
	UpsertDailyAttendance(ctx context.Context, rec *models.DailyAttendance) error
	GetSetting(ctx context.Context, key string) (string, error)

	ListActiveEmployees(ctx context.Context) ([]models.Employee, error)
	ListAttendanceByDay(ctx context.Context, day string) ([]models.DailyAttendance, error)
}
