package routes

import (
	"github.com/boscod/scanpresence/internal/handlers"
	"github.com/boscod/scanpresence/internal/middleware"
	"github.com/gofiber/fiber/v3"
)

func SetupRoutes(app *fiber.App, scannerHandler *handlers.ScannerHandler, attendanceHandler *handlers.AttendanceHandler) {
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "scanpresence is running",
		})
	})

	api := app.Group("/api")

	// ==================
	// Scan session lifecycle + pipeline
	// ==================
	sc := api.Group("/scanner")
	sc.Post("/session", scannerHandler.StartSession)
	sc.Delete("/session", scannerHandler.StopSession)
	sc.Get("/status", scannerHandler.Status)
	sc.Post("/scan", scannerHandler.Scan, middleware.ScanRateLimitMiddleware())
	sc.Get("/metrics", scannerHandler.Metrics)
	sc.Get("/diagnostics/export", scannerHandler.ExportDiagnostics)

	// ==================
	// Attendance views + absence sweep
	// ==================
	att := api.Group("/attendance")
	att.Get("/today", attendanceHandler.Today)
	att.Post("/absence-sweep", attendanceHandler.AbsenceSweep)
}
