package scanner

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/boscod/scanpresence/internal/models"
	"github.com/boscod/scanpresence/internal/store"
)

// Action is the attendance phase a scan advances to.
type Action string

const (
	ActionFirstIn   Action = "first_in"
	ActionFirstOut  Action = "first_out"
	ActionSecondIn  Action = "second_in"
	ActionSecondOut Action = "second_out"
)

// Label returns the human-readable phase name used in feedback and push
// payloads.
func (a Action) Label() string {
	switch a {
	case ActionFirstIn:
		return "first check-in"
	case ActionFirstOut:
		return "first check-out"
	case ActionSecondIn:
		return "second check-in"
	case ActionSecondOut:
		return "second check-out"
	}
	return string(a)
}

// DefaultPhaseCooldown is the canonical minimum gap between the first
// check-out and the second check-in. The legacy scanners disagreed between
// 2 and 3 minutes; 3 minutes is the rule here, overridable via config.
const DefaultPhaseCooldown = 3 * time.Minute

// Rules are the tunable parts of the attendance sequence.
type Rules struct {
	WorkStart     string // "HH:MM", fallback when the settings table has no work_start
	GraceMinutes  int
	PhaseCooldown time.Duration
}

// Decision is the outcome of evaluating a scan against the current per-day
// record, computed before any store mutation.
type Decision struct {
	Valid             bool
	Action            Action
	CooldownRemaining time.Duration
	Reject            *ScanError
}

// Result describes a successfully recorded scan.
type Result struct {
	Employee    *models.Employee
	Action      Action
	Record      *models.DailyAttendance
	IsLate      bool
	LateMinutes int
	Timestamp   time.Time
}

// Sequencer enforces the strict per-day attendance order
// first in -> first out -> cooldown -> second in -> second out.
type Sequencer struct {
	store store.AttendanceStore
	rules Rules
	now   func() time.Time
}

func NewSequencer(st store.AttendanceStore, rules Rules) *Sequencer {
	if rules.PhaseCooldown <= 0 {
		rules.PhaseCooldown = DefaultPhaseCooldown
	}
	if rules.WorkStart == "" {
		rules.WorkStart = "09:00"
	}
	return &Sequencer{
		store: st,
		rules: rules,
		now:   time.Now,
	}
}

// Evaluate decides what a scan at now would do to rec, without touching the
// store. rec may be nil (no record for the day yet). A rejected scan must
// produce zero side effects, so every guard lives here.
func (s *Sequencer) Evaluate(rec *models.DailyAttendance, now time.Time) Decision {
	switch {
	case rec == nil || rec.FirstIn == nil:
		return Decision{Valid: true, Action: ActionFirstIn}

	case rec.FirstOut == nil:
		// A backward clock step must never persist a timestamp earlier than
		// the previous phase; the four timestamps stay strictly increasing.
		if !now.After(*rec.FirstIn) {
			return Decision{Reject: errOutOfOrder()}
		}
		return Decision{Valid: true, Action: ActionFirstOut}

	case rec.SecondIn == nil:
		if !now.After(*rec.FirstOut) {
			return Decision{Reject: errOutOfOrder()}
		}
		elapsed := now.Sub(*rec.FirstOut)
		if elapsed < s.rules.PhaseCooldown {
			remaining := s.rules.PhaseCooldown - elapsed
			return Decision{CooldownRemaining: remaining, Reject: errCooldown(remaining)}
		}
		return Decision{Valid: true, Action: ActionSecondIn}

	case rec.SecondOut == nil:
		if !now.After(*rec.SecondIn) {
			return Decision{Reject: errOutOfOrder()}
		}
		return Decision{Valid: true, Action: ActionSecondOut}

	default:
		return Decision{Reject: errDayComplete()}
	}
}

// Process resolves the scan code, evaluates the sequence and applies exactly
// one conditional update against the store. Every returned error is a
// *ScanError; transient store failures never advance the sequence.
func (s *Sequencer) Process(ctx context.Context, code string) (*Result, error) {
	now := s.now()
	day := now.Format(models.DayFormat)

	employee, err := s.store.FindEmployeeByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errNotFound(code)
	}
	if err != nil {
		return nil, errTransient(err)
	}
	if !employee.Active {
		return nil, errInactive(employee.Name)
	}

	rec, err := s.store.GetDailyAttendance(ctx, employee.ID, day)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, errTransient(err)
	}

	decision := s.Evaluate(rec, now)
	if !decision.Valid {
		return nil, decision.Reject
	}

	result := &Result{Employee: employee, Action: decision.Action, Timestamp: now}

	switch decision.Action {
	case ActionFirstIn:
		rec = &models.DailyAttendance{EmployeeID: employee.ID, Day: day, FirstIn: &now}
		rec.IsLate, rec.LateMinutes = s.lateness(ctx, now)
	case ActionFirstOut:
		rec.FirstOut = &now
		rec.TotalHours = rec.SessionHours()
	case ActionSecondIn:
		rec.SecondIn = &now
	case ActionSecondOut:
		rec.SecondOut = &now
		rec.TotalHours = rec.SessionHours()
	}

	if err := s.store.UpsertDailyAttendance(ctx, rec); err != nil {
		// A lost insert race (store.ErrConflict) is just another retryable
		// failure; the next attempt will see the fresh row.
		return nil, errTransient(err)
	}

	result.Record = rec
	// Lateness is a property of the first check-in only; later phases carry
	// it on the record but do not re-flag the scan.
	if decision.Action == ActionFirstIn {
		result.IsLate = rec.IsLate
		result.LateMinutes = rec.LateMinutes
	}
	return result, nil
}

// lateness compares a first check-in against the configured work start plus
// grace. Work start is read from the settings table so HR can move it without
// a redeploy; a read failure falls back to the static rule instead of failing
// the scan.
func (s *Sequencer) lateness(ctx context.Context, firstIn time.Time) (bool, int) {
	workStart := s.rules.WorkStart
	if v, err := s.store.GetSetting(ctx, models.SettingWorkStart); err == nil && v != "" {
		workStart = v
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("[Sequencer] Failed to read work_start setting, using %q: %v", workStart, err)
	}

	grace := s.rules.GraceMinutes
	if v, err := s.store.GetSetting(ctx, models.SettingGraceMinutes); err == nil {
		if n, convErr := strconv.Atoi(v); convErr == nil {
			grace = n
		}
	}

	start, err := time.ParseInLocation("15:04", workStart, firstIn.Location())
	if err != nil {
		log.Printf("[Sequencer] Invalid work_start %q: %v", workStart, err)
		return false, 0
	}
	deadline := time.Date(firstIn.Year(), firstIn.Month(), firstIn.Day(),
		start.Hour(), start.Minute(), 0, 0, firstIn.Location()).
		Add(time.Duration(grace) * time.Minute)

	if !firstIn.After(deadline) {
		return false, 0
	}
	return true, int(firstIn.Sub(deadline).Minutes())
}
