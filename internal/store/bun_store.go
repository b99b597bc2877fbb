package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boscod/scanpresence/internal/models"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore implements AttendanceStore on Postgres via bun.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

var _ AttendanceStore = (*BunStore)(nil)

func (s *BunStore) FindEmployeeByCode(ctx context.Context, code string) (*models.Employee, error) {
	employee := new(models.Employee)
	err := s.db.NewSelect().
		Model(employee).
		Where("scan_code = ?", code).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee by code: %w", err)
	}
	return employee, nil
}

func (s *BunStore) GetDailyAttendance(ctx context.Context, employeeID uuid.UUID, day string) (*models.DailyAttendance, error) {
	rec := new(models.DailyAttendance)
	err := s.db.NewSelect().
		Model(rec).
		Where("employee_id = ?", employeeID).
		Where("day = ?", day).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load daily attendance: %w", err)
	}
	return rec, nil
}

func (s *BunStore) UpsertDailyAttendance(ctx context.Context, rec *models.DailyAttendance) error {
	if rec.ID == 0 {
		// First scan of the day. The unique (employee_id, day) index is the
		// serialization point for concurrent scans of the same employee: the
		// loser sees zero affected rows and must re-read.
		res, err := s.db.NewInsert().
			Model(rec).
			On("CONFLICT (employee_id, day) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert daily attendance: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return ErrConflict
		}
		return nil
	}

	// Later phases mutate the row in place. COALESCE keeps a column that a
	// concurrent writer already set, so a lost race is absorbed idempotently
	// instead of rewinding a timestamp.
	q := s.db.NewUpdate().
		Model(rec).
		Set("is_late = ?", rec.IsLate).
		Set("late_minutes = ?", rec.LateMinutes).
		Set("total_hours = ?", rec.TotalHours).
		Set("updated_at = now()").
		Where("id = ?", rec.ID)
	if rec.FirstIn != nil {
		q = q.Set("first_in = COALESCE(da.first_in, ?)", rec.FirstIn)
	}
	if rec.FirstOut != nil {
		q = q.Set("first_out = COALESCE(da.first_out, ?)", rec.FirstOut)
	}
	if rec.SecondIn != nil {
		q = q.Set("second_in = COALESCE(da.second_in, ?)", rec.SecondIn)
	}
	if rec.SecondOut != nil {
		q = q.Set("second_out = COALESCE(da.second_out, ?)", rec.SecondOut)
	}

	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update daily attendance: %w", err)
	}
	return nil
}

func (s *BunStore) GetSetting(ctx context.Context, key string) (string, error) {
	setting := new(models.Setting)
	err := s.db.NewSelect().
		Model(setting).
		Where("key = ?", key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load setting %q: %w", key, err)
	}
	return setting.Value, nil
}

func (s *BunStore) ListActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := s.db.NewSelect().
		Model(&employees).
		Where("active = true").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	return employees, nil
}

func (s *BunStore) ListAttendanceByDay(ctx context.Context, day string) ([]models.DailyAttendance, error) {
	var recs []models.DailyAttendance
	err := s.db.NewSelect().
		Model(&recs).
		ColumnExpr("da.*").
		ColumnExpr("e.name AS employee_name").
		Join("JOIN employees AS e ON e.id = da.employee_id").
		Where("da.day = ?", day).
		Order("e.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance for %s: %w", day, err)
	}
	return recs, nil
}
