package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/talentoak/approval-engine/internal/application/chain"
	"github.com/talentoak/approval-engine/internal/application/dispatcher"
	"github.com/talentoak/approval-engine/internal/application/engine"
	"github.com/talentoak/approval-engine/internal/application/gate"
	"github.com/talentoak/approval-engine/internal/application/resolver"
	"github.com/talentoak/approval-engine/internal/application/selector"
	"github.com/talentoak/approval-engine/internal/config"
	"github.com/talentoak/approval-engine/internal/domain/event"
	httpserver "github.com/talentoak/approval-engine/internal/interfaces/http"
	"github.com/talentoak/approval-engine/internal/infrastructure/notify"
	"github.com/talentoak/approval-engine/internal/infrastructure/persistence/repository"
	"github.com/talentoak/approval-engine/internal/infrastructure/persistence/sqlite"
	"github.com/talentoak/approval-engine/internal/infrastructure/worker"
	"github.com/talentoak/approval-engine/internal/metrics"
	"github.com/talentoak/approval-engine/pkg/database"
	"github.com/talentoak/approval-engine/pkg/utils"
)

func main() {
	// Optional .env for local development; missing file is fine.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting approval engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db, logger)

	// Repositories
	instanceRepo := repository.NewInstanceRepository(db, logger)
	definitionRepo := repository.NewDefinitionRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	historyRepo := repository.NewHistoryRepository(db, logger)
	notificationRepo := repository.NewNotificationLogRepository(db, logger)
	onboardingRepo := repository.NewOnboardingRepository(db, logger)
	leaveRepo := repository.NewLeaveRepository(db, logger)

	kv := utils.NewKVLogger(logger)

	// Event dispatcher with a structured-logging subscriber for every
	// lifecycle transition.
	events := dispatcher.New(dispatcher.WithLogger(kv))
	subscribeEventLogging(events, kv)

	engineMetrics := metrics.New()

	notifier := notify.NewNotifier(userRepo, notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)

	// Engine core
	workflowSelector := selector.New(definitionRepo, kv)
	approverResolver := resolver.New(userRepo, kv)
	chainBuilder := chain.NewBuilder(approverResolver, kv)

	// The outcome registry is populated after the gate services exist, but
	// the engine needs the sink up front.
	handlers := map[string]gate.RequestTypeHandler{}
	registry := gate.NewRegistry(kv, handlers)

	approvalEngine := engine.New(
		workflowSelector,
		chainBuilder,
		userRepo,
		instanceRepo,
		historyRepo,
		notificationRepo,
		txManager,
		notifier,
		registry,
		kv,
		engine.WithDispatcher(events),
		engine.WithMetrics(engineMetrics),
		engine.WithNotificationChannel(cfg.Engine.NotificationChannel),
	)

	// Business-object gates
	onboardingService := gate.NewOnboardingService(onboardingRepo, approvalEngine, txManager, kv)
	handlers[gate.RequestTypeOnboarding] = gate.NewOnboardingHandler(onboardingService)
	handlers[gate.RequestTypeLeave] = gate.NewLeaveHandler(leaveRepo, kv)

	// Background workers
	workerManager := worker.NewManager(logger)
	workerManager.Register(worker.NewSLAWorker(approvalEngine, cfg.Engine.SweepInterval, logger))

	// HTTP server
	httpHandlers := httpserver.NewHandlers(approvalEngine, onboardingService, kv)
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, httpHandlers, engineMetrics.Registry(), kv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	workerManager.StopAll()
	if err := server.Stop(); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := events.Close(); err != nil {
		logger.Error("Dispatcher close error", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// subscribeEventLogging attaches one logging handler per lifecycle event type.
func subscribeEventLogging(d dispatcher.Dispatcher, logger dispatcher.Logger) {
	types := []event.Type{
		event.TypeInstanceCreated,
		event.TypeInstanceApproved,
		event.TypeInstanceRejected,
		event.TypeInstanceCancelled,
		event.TypeInstanceEscalated,
		event.TypeLevelAdvanced,
		event.TypeGateTransitioned,
	}

	for _, t := range types {
		eventType := t
		d.SubscribeNamed(eventType, "audit-log", func(ctx context.Context, evt *event.Event) error {
			logger.Info("Lifecycle event",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"instance_id", evt.InstanceID,
			)
			return nil
		})
	}
}
