package models

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DayFormat is the canonical key format for the per-day attendance record.
const DayFormat = "2006-01-02"

// DailyAttendance holds one record per (employee, calendar day). The record
// is created lazily on the first scan of the day and mutated in place for the
// later phases; it is never deleted. The four phase timestamps must stay
// strictly increasing where present.
type DailyAttendance struct {
	bun.BaseModel `bun:"table:daily_attendance,alias:da"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	EmployeeID uuid.UUID `bun:"employee_id,notnull,type:uuid" json:"employee_id"`
	Day        string    `bun:"day,notnull" json:"day"` // unique together with employee_id

	FirstIn   *time.Time `bun:"first_in" json:"first_in,omitempty"`
	FirstOut  *time.Time `bun:"first_out" json:"first_out,omitempty"`
	SecondIn  *time.Time `bun:"second_in" json:"second_in,omitempty"`
	SecondOut *time.Time `bun:"second_out" json:"second_out,omitempty"`

	IsLate      bool    `bun:"is_late,notnull,default:false" json:"is_late"`
	LateMinutes int     `bun:"late_minutes,notnull,default:0" json:"late_minutes"`
	TotalHours  float64 `bun:"total_hours,notnull,default:0" json:"total_hours"`

	CreatedAt time.Time `bun:"created_at,nullzero,default:now()" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:now()" json:"updated_at"`

	// Joined fields
	EmployeeName string `bun:"employee_name,scanonly" json:"employee_name,omitempty"`
}

// Complete reports whether the day has reached its terminal state.
func (a *DailyAttendance) Complete() bool {
	return a.SecondOut != nil
}

// SessionHours sums the completed check-in/check-out pairs, in hours rounded
// to two decimals. Sessions are never cross-paired: an open session
// contributes nothing.
func (a *DailyAttendance) SessionHours() float64 {
	var total float64
	if a.FirstIn != nil && a.FirstOut != nil {
		total += a.FirstOut.Sub(*a.FirstIn).Hours()
	}
	if a.SecondIn != nil && a.SecondOut != nil {
		total += a.SecondOut.Sub(*a.SecondIn).Hours()
	}
	return math.Round(total*100) / 100
}

// BeforeInsert hook
var _ bun.BeforeInsertHook = (*DailyAttendance)(nil)

func (a *DailyAttendance) BeforeInsert(ctx context.Context, query *bun.InsertQuery) error {
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate hook
var _ bun.BeforeUpdateHook = (*DailyAttendance)(nil)

func (a *DailyAttendance) BeforeUpdate(ctx context.Context, query *bun.UpdateQuery) error {
	a.UpdatedAt = time.Now()
	return nil
}
