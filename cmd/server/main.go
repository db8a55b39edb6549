package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/ozidan13/codehub/internal/cache"
	"github.com/ozidan13/codehub/internal/config"
	"github.com/ozidan13/codehub/internal/database"
	"github.com/ozidan13/codehub/internal/events"
	"github.com/ozidan13/codehub/internal/jobs"
	"github.com/ozidan13/codehub/internal/middleware"
	"github.com/ozidan13/codehub/internal/repository"
	"github.com/ozidan13/codehub/internal/routes"
	"github.com/ozidan13/codehub/internal/services"
	calendarws "github.com/ozidan13/codehub/internal/websocket"
	"github.com/ozidan13/codehub/pkg/logger"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.NewWithConfig(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "codehub",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal().Msg("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl, cfg.DBMaxConns, log); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.CloseDB()
	pool := database.DB

	// 3. Optional infrastructure
	var catalog *cache.Catalog
	catalogRepo := repository.NewCatalogRepository(pool)
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		catalog = cache.NewCatalog(catalogRepo, rdb, cfg.CacheTTL, log)
	} else {
		log.Warn().Msg("REDIS_URL not set, catalog reads go straight to postgres")
		catalog = cache.NewCatalog(catalogRepo, nil, cfg.CacheTTL, log)
	}

	hub := calendarws.NewHub(log)
	go hub.Run(ctx)

	publisher := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to amqp")
		}
		defer amqpPublisher.Close()
		publisher = append(publisher, amqpPublisher)
	}

	var storage services.ReceiptStorage
	if cfg.StorageEnabled() {
		storage = services.NewSupabaseReceiptStorage(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	// 4. Services
	ledger := services.NewLedger(pool, log)
	calendar := services.NewCalendar(pool, services.CalendarConfig{
		WeekendDays:        cfg.Booking.WeekendDays,
		RangeMaxDays:       cfg.Booking.RangeMaxDays,
		RangeWorkers:       cfg.Booking.RangeWorkers,
		ReportSkippedSlots: cfg.Booking.ReportSkippedSlots,
	}, publisher, log)
	enrollments := services.NewEnrollmentService(pool, ledger, catalog, services.EnrollmentConfig{
		AllowEarlyRenewal: cfg.Booking.AllowEarlyRenewal,
	}, log)
	bookings := services.NewBookingService(pool, ledger, calendar, catalog, publisher, log)
	wallet := services.NewWalletService(ledger, storage, log)

	scheduler := jobs.NewScheduler(jobs.Config{
		RecurringCron:    cfg.Jobs.RecurringCron,
		ExpirySweepCron:  cfg.Jobs.ExpirySweepCron,
		RecurringHorizon: cfg.Booking.RecurringHorizonWeeks,
	}, calendar, enrollments, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer scheduler.Stop()

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: errorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	app.Use(cors.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, routes.Dependencies{
		Enrollments: enrollments,
		Bookings:    bookings,
		Calendar:    calendar,
		Wallet:      wallet,
		Catalog:     catalog,
		Hub:         hub,
		Log:         log,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register routes")
	}

	// 6. Start Server
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "InternalError"
	message := "Internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
		switch status {
		case fiber.StatusNotFound:
			code = "NotFound"
		case fiber.StatusMethodNotAllowed:
			code = "MethodNotAllowed"
		case fiber.StatusRequestEntityTooLarge:
			code = "PayloadTooLarge"
		case fiber.StatusTooManyRequests:
			code = "TooManyRequests"
		default:
			if status < fiber.StatusInternalServerError {
				code = "BadRequest"
			}
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": message},
	})
}
