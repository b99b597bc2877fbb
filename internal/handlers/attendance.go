package handlers

import (
	"time"

	"github.com/boscod/scanpresence/internal/models"
	"github.com/boscod/scanpresence/internal/store"
	"github.com/boscod/scanpresence/internal/worker"
	"github.com/gofiber/fiber/v3"
)

type AttendanceHandler struct {
	store   store.AttendanceStore
	sweeper *worker.AbsenceWorker
}

func NewAttendanceHandler(st store.AttendanceStore, sweeper *worker.AbsenceWorker) *AttendanceHandler {
	return &AttendanceHandler{
		store:   st,
		sweeper: sweeper,
	}
}

// Today handles GET /api/attendance/today - the roster panel next to the
// scanner. Accepts ?date=YYYY-MM-DD for older days.
func (h *AttendanceHandler) Today(c fiber.Ctx) error {
	day := c.Query("date", time.Now().Format(models.DayFormat))
	if _, err := time.Parse(models.DayFormat, day); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format (use YYYY-MM-DD)"})
	}

	records, err := h.store.ListAttendanceByDay(c.Context(), day)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to load attendance",
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"date":    day,
		"total":   len(records),
		"records": records,
	})
}

// AbsenceSweep handles POST /api/attendance/absence-sweep - manual trigger of
// the daily absence notification sweep.
func (h *AttendanceHandler) AbsenceSweep(c fiber.Ctx) error {
	day := c.Query("date", time.Now().Format(models.DayFormat))
	if _, err := time.Parse(models.DayFormat, day); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format (use YYYY-MM-DD)"})
	}

	absent, err := h.sweeper.Sweep(c.Context(), day)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Sweep failed",
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"date":   day,
		"absent": absent,
	})
}
