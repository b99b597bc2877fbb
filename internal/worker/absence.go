package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/boscod/scanpresence/internal/models"
	"github.com/boscod/scanpresence/internal/store"
)

// AbsenceNotifier is the slice of the push gateway the sweep needs.
type AbsenceNotifier interface {
	NotifyAbsence(employeeName, date string)
}

// AbsenceWorker publishes an absence notification for every active employee
// without an attendance record for the day. Runs once per day at the
// configured time; a sweep can also be triggered on demand over the API.
type AbsenceWorker struct {
	store    store.AttendanceStore
	notifier AbsenceNotifier
	sweepAt  string // "HH:MM", local time
	now      func() time.Time
}

func NewAbsenceWorker(st store.AttendanceStore, notifier AbsenceNotifier, sweepAt string) *AbsenceWorker {
	return &AbsenceWorker{
		store:    st,
		notifier: notifier,
		sweepAt:  sweepAt,
		now:      time.Now,
	}
}

// Run checks the clock every minute and fires the sweep once per day when it
// passes the configured time. Cancels with ctx.
func (w *AbsenceWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastSweptDay string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := w.now()
			day := now.Format(models.DayFormat)
			if day == lastSweptDay || now.Format("15:04") < w.sweepAt {
				continue
			}
			lastSweptDay = day
			if count, err := w.Sweep(ctx, day); err != nil {
				log.Printf("[Absence] Sweep for %s failed: %v", day, err)
			} else {
				log.Printf("[Absence] Sweep for %s: %d absent", day, count)
			}
		}
	}
}

// Sweep diffs the active roster against the day's attendance and notifies
// the gateway for every employee with no record. Returns the absent count.
func (w *AbsenceWorker) Sweep(ctx context.Context, day string) (int, error) {
	employees, err := w.store.ListActiveEmployees(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load roster: %w", err)
	}

	records, err := w.store.ListAttendanceByDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("failed to load attendance: %w", err)
	}

	present := make(map[string]bool, len(records))
	for _, rec := range records {
		present[rec.EmployeeID.String()] = true
	}

	absent := 0
	for _, emp := range employees {
		if present[emp.ID.String()] {
			continue
		}
		w.notifier.NotifyAbsence(emp.Name, day)
		absent++
	}
	return absent, nil
}
