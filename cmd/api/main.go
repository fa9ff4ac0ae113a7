package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/roommate-api/internal/config"
	"github.com/noah-isme/roommate-api/internal/database"
	"github.com/noah-isme/roommate-api/internal/handler"
	"github.com/noah-isme/roommate-api/internal/middleware"
	"github.com/noah-isme/roommate-api/internal/observability"
	"github.com/noah-isme/roommate-api/internal/realtime"
	"github.com/noah-isme/roommate-api/internal/repository"
	"github.com/noah-isme/roommate-api/internal/router"
	"github.com/noah-isme/roommate-api/internal/service"
	"github.com/noah-isme/roommate-api/internal/session"
	cloud "github.com/noah-isme/roommate-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.AppEnv == "development")
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(rootCtx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, change feed limited to redis")
		} else {
			defer natsConn.Drain()
		}
	}

	feed, err := realtime.NewFeed(realtime.Options{
		Redis:   redisClient,
		NATS:    natsConn,
		Channel: cfg.RealtimeChannel,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create change feed: %v", err)
	}
	feed.Start(rootCtx)

	var avatars service.FileStorage
	if cfg.CloudinaryEnabled() {
		store, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		avatars = store
	} else {
		logger.Warn().Msg("cloudinary not configured, avatar uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	adminRepo := repository.NewAdminProfileRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, feed, logger)
	catalogService := service.NewRoomCatalogService(studentRepo, roomRepo, adminRepo, feed, validate, cfg.DefaultRoomCapacity, logger)
	allocationService := service.NewRoomAllocationService(studentRepo, roomRepo, adminRepo, activityService, notificationService, feed, cfg.DefaultRoomCapacity, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, studentRepo, adminRepo, activityService, feed, validate, cfg.AttendanceThreshold, logger)
	complaintService := service.NewComplaintService(complaintRepo, studentRepo, adminRepo, activityService, feed, validate, logger)
	transactionService := service.NewTransactionService(transactionRepo, studentRepo, adminRepo, activityService, notificationService, feed, validate, logger)
	adminDashboardService := service.NewAdminDashboardService(studentRepo, attendanceRepo, complaintRepo, transactionRepo, adminRepo, activityService, cfg.AttendanceThreshold, logger)
	studentDashboardService := service.NewStudentDashboardService(studentRepo, attendanceRepo, complaintRepo, transactionRepo, notificationRepo, feed, redisClient, cfg.DashboardCacheTTL, cfg.AttendanceThreshold, logger)
	profileService := service.NewProfileService(studentRepo, adminRepo, avatars, feed, validate, cfg.UploadMaxMB, logger)
	studentDashboardService.Start(rootCtx)

	sessions := session.NewRedisStore(redisClient, "roommate")
	allocationLimit := middleware.RateLimit("room-allocate", cfg.RateLimitMax, cfg.RateLimitWindow)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		RoomHandler:             handler.NewRoomHandler(catalogService, allocationService, allocationLimit, logger),
		AttendanceHandler:       handler.NewAttendanceHandler(attendanceService, logger),
		ComplaintHandler:        handler.NewComplaintHandler(complaintService, logger),
		TransactionHandler:      handler.NewTransactionHandler(transactionService, logger),
		AdminDashboardHandler:   handler.NewAdminDashboardHandler(adminDashboardService, logger),
		AdminActivityHandler:    handler.NewAdminActivityHandler(activityService, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(studentDashboardService, logger),
		ProfileHandler:          handler.NewProfileHandler(profileService, logger),
		NotificationHandler:     handler.NewNotificationHandler(notificationService, logger),
		AuthHandler:             handler.NewAuthHandler(sessions, logger),
		RealtimeHandler:         handler.NewRealtimeHandler(feed, cfg.RealtimeKeepAlive, logger),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret, sessions, logger),
		MetricsHandler:          observability.MetricsHandler(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancelRoot)
}

func waitForShutdown(app *fiber.App, cancelRoot context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	// Stops the feed subscribers and the dashboard eviction loop.
	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
