package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Kizhoo/message-api/internal/api"
	"github.com/Kizhoo/message-api/internal/cache"
	"github.com/Kizhoo/message-api/internal/client"
	"github.com/Kizhoo/message-api/internal/config"
	"github.com/Kizhoo/message-api/internal/repo"
	"github.com/Kizhoo/message-api/internal/scheduler"
	"github.com/Kizhoo/message-api/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("message api starting",
		"addr", cfg.Server.Address,
		"store", cfg.StoreConfigured(),
		"relay", cfg.RelayConfigured(),
		"redis", cfg.Redis.Enabled,
	)

	var (
		submitSvc *service.SubmitService
		statsSvc  *service.StatsService
	)

	// Missing store or relay configuration leaves the matching service nil;
	// the handlers then answer with SERVER_CONFIG_ERROR instead of crashing.
	if cfg.StoreConfigured() {
		db, err := sql.Open("pgx", cfg.Database.PostgresURL)
		if err != nil {
			slog.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		subRepo := repo.NewPostgresSubmissionRepo(db)
		statsRepo := repo.NewPostgresStatsRepo(db)

		statsSvc = service.NewStatsService(subRepo, statsRepo)
		if cfg.Redis.Enabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			statsSvc = statsSvc.WithCache(cache.NewRedisStatsCache(rdb, cfg.Redis.TTL))
		}

		if cfg.RelayConfigured() {
			tg := client.NewTelegramClient(cfg.Telegram.APIBase, cfg.Telegram.BotToken)
			submitSvc = service.NewSubmitService(subRepo, tg, cfg.Telegram.ChatID, cfg.Telegram.PhotoDelay)
		} else {
			slog.Warn("telegram relay not configured, submissions fail closed")
		}

		job, err := scheduler.New("daily-stats-refresh", cfg.Stats.RefreshInterval, func(ctx context.Context) error {
			return statsRepo.RefreshDailyStats(ctx, time.Now().UTC())
		})
		if err != nil {
			slog.Error("failed to create stats refresh job", "error", err)
			os.Exit(1)
		}
		job.Start()
		defer job.Stop()
	} else {
		slog.Warn("store not configured, endpoints fail closed")
	}

	handler := loggingMiddleware(api.Router(api.NewHandler(submitSvc, statsSvc)))

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: handler,
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
