package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	appadmin "github.com/numgate/numgate/pkg/app/admin"
	applookup "github.com/numgate/numgate/pkg/app/lookup"
	"github.com/numgate/numgate/pkg/cache"
	"github.com/numgate/numgate/pkg/config"
	"github.com/numgate/numgate/pkg/gateway"
	handlers "github.com/numgate/numgate/pkg/handlers/http"
	"github.com/numgate/numgate/pkg/infra/httpx"
	"github.com/numgate/numgate/pkg/infra/logger"
	"github.com/numgate/numgate/pkg/infra/repository"
	"github.com/numgate/numgate/pkg/quota"
	"github.com/numgate/numgate/pkg/server"
	"github.com/numgate/numgate/pkg/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logg := logger.NewLogger()

	cfg, err := config.Load("./config")
	if err != nil {
		logg.WithError(err).Fatal("failed to load config")
	}

	// Quota ledger, restored from the last snapshot if one exists.
	ledger := quota.NewMemoryLedger(quota.Config{
		DailyLimit: cfg.Quota.DailyLimit,
		Window:     cfg.Quota.Window,
		AdminID:    cfg.Telegram.AdminID,
	})
	snapshots := repository.NewSnapshotStore(cfg.Storage.SnapshotPath, logg)
	snap, err := snapshots.Load()
	if err != nil {
		logg.WithError(err).Warn("could not load ledger snapshot, starting fresh")
	}
	ledger.Restore(snap)

	historyRepo, err := repository.NewSQLiteHistory(cfg.Storage.HistoryPath, cfg.Quota.HistoryLimit)
	if err != nil {
		logg.WithError(err).Fatal("failed to open history database")
	}
	defer historyRepo.Close()

	var resultCache cache.ResultCache
	if cfg.Cache.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		resultCache = cache.NewRedisCache(client, logg)
	} else {
		resultCache = cache.NewMemoryCache()
	}

	sources := []gateway.SourceConfig{{Name: "primary", URL: cfg.Lookup.PrimaryURL}}
	if cfg.Lookup.SecondaryURL != "" {
		sources = append(sources, gateway.SourceConfig{Name: "secondary", URL: cfg.Lookup.SecondaryURL})
	}
	stripFields := cfg.Lookup.StripFields
	if len(stripFields) == 0 {
		stripFields = gateway.DefaultStripFields
	}
	gw := gateway.New(gateway.Config{
		Sources:     sources,
		CacheTTL:    cfg.Lookup.CacheTTL,
		StripFields: stripFields,
	}, httpx.NewClient(cfg.Lookup.Timeout), resultCache, logg)

	orchestrator := applookup.NewOrchestrator(applookup.Config{
		MinDigits: cfg.Lookup.MinDigits,
		MaxDigits: cfg.Lookup.MaxDigits,
	}, ledger, gw, historyRepo, logg)

	adminService := appadmin.NewService(ledger, historyRepo, logg)

	bot, err := telegram.NewBot(telegram.Config{
		Token:         cfg.Telegram.Token,
		AdminID:       cfg.Telegram.AdminID,
		ReferralBonus: cfg.Quota.ReferralBonus,
	}, orchestrator, adminService, historyRepo, logg)
	if err != nil {
		logg.WithError(err).Fatal("failed to initialize telegram bot")
	}

	adminServer := server.NewAdminServer(server.AdminServerDI{
		Config: cfg,
		Logger: logg,
		HandlerTransport: handlers.HandlerTransport{
			GetStatsHandler:        handlers.NewGetStatsHandler(logg, adminService),
			GrantUnlimitedHandler:  handlers.NewGrantUnlimitedHandler(logg, adminService),
			RevokeUnlimitedHandler: handlers.NewRevokeUnlimitedHandler(logg, adminService),
			AddCreditsHandler:      handlers.NewAddCreditsHandler(logg, adminService),
			BanUserHandler:         handlers.NewBanUserHandler(logg, adminService),
			UnbanUserHandler:       handlers.NewUnbanUserHandler(logg, adminService),
			GetHistoryHandler:      handlers.NewGetHistoryHandler(logg, historyRepo, cfg.Quota.HistoryLimit),
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go snapshots.Run(ctx, cfg.Storage.SnapshotInterval, ledger.Snapshot)

	go func() {
		if err := adminServer.Run(); err != nil {
			logg.WithError(err).Error("admin server stopped")
		}
	}()

	go func() {
		if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
			logg.WithError(err).Error("telegram bot stopped")
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logg.Info("shutting down")
	case <-ctx.Done():
	}

	cancel()
	if err := adminServer.Shutdown(); err != nil {
		logg.WithError(err).Warn("admin server shutdown failed")
	}
	if err := snapshots.Save(ledger.Snapshot()); err != nil {
		logg.WithError(err).Error("final snapshot failed")
	}
}
