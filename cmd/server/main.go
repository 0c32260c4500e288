package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coplay/internal/app"
	"github.com/pscheid92/coplay/internal/coordination"
	"github.com/pscheid92/coplay/internal/database"
	"github.com/pscheid92/coplay/internal/platform/config"
	"github.com/pscheid92/coplay/internal/platform/logging"
	"github.com/pscheid92/coplay/internal/redis"
	"github.com/pscheid92/coplay/internal/relay"
	"github.com/pscheid92/coplay/internal/server"
	"github.com/pscheid92/coplay/internal/session"
	"github.com/pscheid92/coplay/internal/version"
	"github.com/pscheid92/coplay/internal/websocket"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	instanceHeartbeat = 15 * time.Second
	leaderKey         = "coplay:leader:history_prune"
	leaderLeaseTTL    = 90 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "instance_id", cfg.InstanceID)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	// Event fan-out: local hub plus cross-instance bridge
	bridge := redis.NewEventBridge(redisClient, cfg.InstanceID)
	hub := websocket.NewHub(cfg.MaxClientsPerChannel)
	publisher := websocket.NewPublisher(hub, bridge)

	// Emulator relay with save-state blobs in Redis
	vault := redis.NewStateVault(redisClient, cfg.SaveStateTTL)
	emulator := relay.New(publisher, vault, clock, cfg.RelayReplyTimeout)

	registry := session.NewRegistry(emulator, publisher, nil, clock)
	historyRepo := database.NewHistoryRepo(pool)

	instances := coordination.NewInstanceRegistry(redisClient, cfg.InstanceID, instanceHeartbeat, version.Version)
	leader := coordination.NewLeaderElection(redisClient, cfg.InstanceID, leaderKey, leaderLeaseTTL)

	appSvc := app.New(registry, historyRepo, clock, app.Options{
		Enabled:              cfg.CoPlayEnabled,
		IdleSessionTimeout:   cfg.IdleSessionTimeout,
		IdleScanInterval:     cfg.IdleScanInterval,
		HistoryRetentionDays: cfg.HistoryRetentionDays,
		Instances:            instances,
		Leader:               leader,
		Pruner:               historyRepo,
	})

	srv := server.NewServer(cfg, appSvc, hub, emulator, pool, redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bridge.Run(ctx, publisher.DeliverRemote)
	})
	g.Go(func() error {
		instances.Start(ctx)
		return nil
	})
	g.Go(func() error {
		appSvc.RunIdleCleanup(ctx)
		return nil
	})
	g.Go(func() error {
		appSvc.RunHistoryRetention(ctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		hub.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
