package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/averias/internal/api/http"
	"github.com/spec-kit/averias/internal/api/http/handlers"
	"github.com/spec-kit/averias/internal/auth"
	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/events"
	"github.com/spec-kit/averias/internal/notify"
	"github.com/spec-kit/averias/internal/observability"
	"github.com/spec-kit/averias/internal/persistence"
	"github.com/spec-kit/averias/internal/repository"
	"github.com/spec-kit/averias/internal/service"
	"github.com/spec-kit/averias/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.ApplySchema(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	deviceRepo := repository.NewDeviceRepository(pool)

	dispatcher := events.NewDispatcher(events.AsyncOptions{
		Workers:        cfg.Notification.Workers,
		QueueSize:      cfg.Notification.QueueSize,
		HandlerTimeout: cfg.Notification.Timeout(),
		Inline:         cfg.Notification.Inline,
		OnResult: func(event events.Event, _ error, dropped bool) {
			if dropped && event.Type == events.EventTicketCreated {
				metrics.RecordNotification(0, false, true)
			}
		},
	}, logger)

	notifier := buildNotifier(ctx, cfg.Notification, deviceRepo, logger)

	reportService := service.NewReportService(service.ReportDependencies{
		TicketRepo: ticketRepo,
		Cache:      redis,
		CacheTTL:   cfg.Redis.ReportCacheTTL(),
		Config:     cfg.SLA,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Cache:       reportService,
		Logger:      logger,
		Config:      cfg.Tickets,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		LocationRepo: locationRepo,
		CategoryRepo: categoryRepo,
		UserRepo:     userRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		Picker:       assignmentService,
		Cache:        reportService,
		Logger:       logger,
		Config:       *cfg,
	})
	catalogService := service.NewCatalogService(service.CatalogDependencies{
		LocationRepo: locationRepo,
		CategoryRepo: categoryRepo,
		UserRepo:     userRepo,
	})
	deviceService := service.NewDeviceService(deviceRepo, logger)

	notificationService := service.NewNotificationService(dispatcher, notifier, metrics, logger)
	notificationWorker := worker.NewNotificationWorker(dispatcher, notificationService, logger)
	notificationWorker.Start()

	var scheduler *worker.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = worker.NewScheduler(cfg.Scheduler, deviceService, reportService, logger)
		if err != nil {
			logger.Fatal("failed to init scheduler", zap.Error(err))
		}
		scheduler.Start()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Reports:        handlers.NewReportsHandler(reportService),
		Devices:        handlers.NewDevicesHandler(deviceService),
		Admin:          handlers.NewAdminHandler(catalogService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := notificationWorker.Stop(shutdownCtx); err != nil {
		logger.Warn("notification drain", zap.Error(err))
	}
	logger.Info("shutdown complete", zap.Any("metrics", metrics.Snapshot()))
}

func buildNotifier(ctx context.Context, cfg config.NotificationConfig, devices notify.DeviceStore, logger *zap.Logger) notify.Notifier {
	if !cfg.PushEnabled() {
		logger.Info("push notifications disabled")
		return notify.NewLogNotifier(logger)
	}
	tokens, err := notify.TokenSourceFromFile(ctx, cfg.FCMCredentialsFile, cfg.Timeout())
	if err != nil {
		logger.Error("fcm credentials unusable; falling back to log notifier", zap.Error(err))
		return notify.NewLogNotifier(logger)
	}
	return notify.NewFCMNotifier(cfg, devices, tokens, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
