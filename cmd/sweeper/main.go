// Command sweeper runs a single SLA escalation sweep and exits. It is meant
// for cron-style deployments where the in-process worker is disabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/talentoak/approval-engine/internal/application/chain"
	"github.com/talentoak/approval-engine/internal/application/engine"
	"github.com/talentoak/approval-engine/internal/application/gate"
	"github.com/talentoak/approval-engine/internal/application/resolver"
	"github.com/talentoak/approval-engine/internal/application/selector"
	"github.com/talentoak/approval-engine/internal/config"
	"github.com/talentoak/approval-engine/internal/infrastructure/notify"
	"github.com/talentoak/approval-engine/internal/infrastructure/persistence/repository"
	"github.com/talentoak/approval-engine/internal/infrastructure/persistence/sqlite"
	"github.com/talentoak/approval-engine/pkg/database"
	"github.com/talentoak/approval-engine/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	timeout := flag.Duration("timeout", time.Minute, "sweep timeout")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
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

	txManager := sqlite.NewDB(db, logger)

	instanceRepo := repository.NewInstanceRepository(db, logger)
	definitionRepo := repository.NewDefinitionRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	historyRepo := repository.NewHistoryRepository(db, logger)
	notificationRepo := repository.NewNotificationLogRepository(db, logger)

	kv := utils.NewKVLogger(logger)

	notifier := notify.NewNotifier(userRepo, notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)

	// The sweep never finalizes an instance, so no outcome handlers are
	// needed here.
	sink := gate.NewRegistry(kv, nil)

	approvalEngine := engine.New(
		selector.New(definitionRepo, kv),
		chain.NewBuilder(resolver.New(userRepo, kv), kv),
		userRepo,
		instanceRepo,
		historyRepo,
		notificationRepo,
		txManager,
		notifier,
		sink,
		kv,
		engine.WithNotificationChannel(cfg.Engine.NotificationChannel),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	escalated, err := approvalEngine.RunEscalationSweep(ctx)
	if err != nil {
		logger.Fatal("Escalation sweep failed", zap.Error(err))
	}

	logger.Info("Escalation sweep complete",
		zap.Int("escalated_count", len(escalated)),
		zap.Strings("escalated", escalated))
}
