package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boscod/scanpresence/internal/feedback"
	"github.com/boscod/scanpresence/internal/metrics"
	"github.com/boscod/scanpresence/internal/scanner"
	"github.com/gofiber/fiber/v3"
)

type ScannerHandler struct {
	manager *scanner.Manager
	monitor *metrics.Monitor
	cues    *feedback.CueQueue
}

func NewScannerHandler(manager *scanner.Manager, monitor *metrics.Monitor, cues *feedback.CueQueue) *ScannerHandler {
	return &ScannerHandler{
		manager: manager,
		monitor: monitor,
		cues:    cues,
	}
}

// StartSession handles POST /api/scanner/session
func (h *ScannerHandler) StartSession(c fiber.Ctx) error {
	session, err := h.manager.Start(c.Context())
	if err != nil {
		var scanErr *scanner.ScanError
		if errors.As(err, &scanErr) && scanErr.Kind == scanner.KindCapture {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "Capture failed",
				"message": scanErr.Message,
			})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "Cannot start session",
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": session.ID,
		"status":     session.Status(),
	})
}

// StopSession handles DELETE /api/scanner/session
func (h *ScannerHandler) StopSession(c fiber.Ctx) error {
	if err := h.manager.Stop(); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "No session",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "stopped"})
}

// Status handles GET /api/scanner/status. Besides the lifecycle status it
// carries the on-screen metrics snapshot and drains pending feedback cues
// for the shell.
func (h *ScannerHandler) Status(c fiber.Ctx) error {
	session := h.manager.Current()
	if session == nil {
		return c.JSON(fiber.Map{"active": false})
	}

	snapshot := h.monitor.Snapshot()
	body := fiber.Map{
		"active":             true,
		"session_id":         session.ID,
		"status":             session.Status(),
		"light":              session.LightAdvice(),
		"fps":                snapshot.FPS,
		"last_processing_ms": snapshot.LastProcessingMS,
		"success_rate":       snapshot.SuccessRate,
		"cues":               h.cues.Drain(),
	}
	if failure := session.Failure(); failure != nil {
		body["capture_error"] = failure.Message
	}
	return c.JSON(body)
}

// Scan handles POST /api/scanner/scan - decoded codes posted by a UI shell.
func (h *ScannerHandler) Scan(c fiber.Ctx) error {
	session := h.manager.Current()
	if session == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "No session",
			"message": "Start a scan session before posting scans",
		})
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	result, err := session.HandleScan(c.Context(), req.Code)
	if err != nil {
		return scanErrorResponse(c, err)
	}
	if result == nil {
		// Dedup gate dropped a repeat detection; not an error for the shell
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"accepted": false,
			"reason":   "duplicate scan suppressed",
		})
	}

	return c.JSON(fiber.Map{
		"accepted":     true,
		"action":       result.Action,
		"employee":     result.Employee.Name,
		"timestamp":    result.Timestamp.Format(time.RFC3339),
		"is_late":      result.IsLate,
		"late_minutes": result.LateMinutes,
		"record":       result.Record,
	})
}

func scanErrorResponse(c fiber.Ctx, err error) error {
	var scanErr *scanner.ScanError
	if !errors.As(err, &scanErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Scan failed",
			"message": err.Error(),
		})
	}

	body := fiber.Map{
		"error":   string(scanErr.Kind),
		"message": scanErr.Message,
	}
	status := fiber.StatusInternalServerError
	switch scanErr.Kind {
	case scanner.KindValidation:
		status = fiber.StatusUnprocessableEntity
	case scanner.KindSequence:
		status = fiber.StatusConflict
		if scanErr.CooldownRemaining > 0 {
			body["cooldown_remaining_seconds"] = int(scanErr.CooldownRemaining.Seconds())
		}
	case scanner.KindTransient:
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(body)
}

// Metrics handles GET /api/scanner/metrics
func (h *ScannerHandler) Metrics(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"snapshot":        h.monitor.Snapshot(),
		"report":          h.monitor.Report(),
		"recommendations": h.monitor.Recommendations(),
	})
}

// ExportDiagnostics handles GET /api/scanner/diagnostics/export
func (h *ScannerHandler) ExportDiagnostics(c fiber.Ctx) error {
	workbook, err := metrics.BuildWorkbook(h.monitor)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Export failed",
			"message": err.Error(),
		})
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Export failed",
			"message": err.Error(),
		})
	}

	filename := fmt.Sprintf("scanner-diagnostics-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
