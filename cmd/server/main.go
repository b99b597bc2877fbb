package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/boscod/scanpresence/config"
	"github.com/boscod/scanpresence/internal/capture"
	"github.com/boscod/scanpresence/internal/database"
	"github.com/boscod/scanpresence/internal/feedback"
	"github.com/boscod/scanpresence/internal/gateway"
	"github.com/boscod/scanpresence/internal/handlers"
	"github.com/boscod/scanpresence/internal/metrics"
	"github.com/boscod/scanpresence/internal/middleware"
	"github.com/boscod/scanpresence/internal/rabbitmq"
	"github.com/boscod/scanpresence/internal/routes"
	"github.com/boscod/scanpresence/internal/scanner"
	"github.com/boscod/scanpresence/internal/store"
	workers "github.com/boscod/scanpresence/internal/worker"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to the attendance store
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Connected to database successfully")

	attendanceStore := store.NewBunStore(db)

	// Push-notification gateway over RabbitMQ (optional, degrades to log-only)
	var mq *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mq, err = rabbitmq.Setup(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("Failed to connect to RabbitMQ, push notifications disabled: %v", err)
			mq = nil
		} else {
			defer mq.Close()
		}
	}
	notifier := gateway.NewNotifier(mq)

	// Feedback fan-out: shell-drained cue queues plus the push gateway
	cues := feedback.NewCueQueue(20)
	dispatcher := feedback.NewDispatcher(
		feedback.NewAudioChannel(cues),
		feedback.NewHapticChannel(cues),
		feedback.NewVisualChannel(cues),
		gateway.NewPushChannel(notifier),
		cfg.FeedbackCooldown,
	)

	monitor := metrics.NewMonitor()
	sequencer := scanner.NewSequencer(attendanceStore, scanner.Rules{
		WorkStart:     cfg.WorkStart,
		GraceMinutes:  cfg.GraceMinutes,
		PhaseCooldown: cfg.PhaseCooldown,
	})

	manager := scanner.NewManager(func() *scanner.Session {
		// Production shells post decoded codes over the API; development
		// attaches the simulator so the capture-side loops run too
		var device capture.Device
		if cfg.IsDevelopment() {
			device = capture.NewSimulatedDevice(capture.Capabilities{
				CameraCount:      2,
				AdvancedControls: true,
				MaxWidth:         1920,
				MaxFrameRate:     30,
				Torch:            true,
			}, 90)
		}
		return scanner.NewSession(device, scanner.NopDecoder{}, sequencer, dispatcher, monitor, scanner.SessionConfig{
			ScanCooldown:        cfg.ScanCooldown,
			LightSampleInterval: cfg.LightSampleInterval,
			PreferredTier:       capture.TierMedium,
		})
	})
	defer manager.StopAll()

	// Daily absence sweep
	sweeper := workers.NewAbsenceWorker(attendanceStore, notifier, cfg.AbsenceSweepTime)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go sweeper.Run(workerCtx)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:       "ScanPresence API",
		CaseSensitive: true,
		StrictRouting: false,
		ServerHeader:  "ScanPresence",
		ErrorHandler:  customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf("PANIC RECOVERED: %v", e)
			log.Printf("Request: %s %s", c.Method(), c.Path())
			log.Printf("Stack Trace:\n%s", string(debug.Stack()))
		},
	}))
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${method} ${path} (${latency})\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Setup routes
	scannerHandler := handlers.NewScannerHandler(manager, monitor, cues)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceStore, sweeper)
	routes.SetupRoutes(app, scannerHandler, attendanceHandler)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down server...")
		manager.StopAll()
		workerCancel()
		if err := app.Shutdown(); err != nil {
			log.Printf("Error shutting down: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Environment: %s", cfg.Env)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func customErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   "Error",
		"message": err.Error(),
	})
}
