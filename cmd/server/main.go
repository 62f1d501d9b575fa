package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/leadbook/internal/archive"
	"github.com/JonMunkholm/leadbook/internal/auth"
	"github.com/JonMunkholm/leadbook/internal/config"
	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/database"
	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/JonMunkholm/leadbook/internal/web"
	"github.com/JonMunkholm/leadbook/internal/web/middleware"
)

// store is what the server needs from a buyer store.
type store interface {
	core.Store
	web.Pinger
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"import_max_rows", cfg.Import.MaxRows,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"require_auth", cfg.Security.RequireAuth,
		"archive_enabled", cfg.Archive.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	buyers, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)

	svcCfg := core.ServiceConfig{
		MaxImportRows: cfg.Import.MaxRows,
		PageSize:      cfg.List.PageSize,
		ImportTimeout: cfg.Import.Timeout,
		Limiter:       limiter,
	}
	if cfg.Archive.Enabled() {
		archiver, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			slog.Error("failed to configure export archive", "error", err)
			os.Exit(1)
		}
		svcCfg.Archiver = archiver
		slog.Info("export archive enabled", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	}

	opts := web.Options{Health: buyers}
	if cfg.Security.JWTSecret != "" {
		opts.Tokens = auth.NewTokenProvider(cfg.Security.JWTSecret, cfg.Security.JWTIssuer)
	}

	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("failed to parse REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, rate limits fail open until it recovers", "error", err)
		}
		opts.RateStore = middleware.NewRedisRateStore(client, cfg.Redis.KeyPrefix)
		slog.Info("rate limits shared through redis", "addr", redisOpts.Addr)
	}

	service := core.NewService(buyers, svcCfg)
	server := web.NewServer(service, cfg, opts)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := serve(server, limiter, cfg.Server.ShutdownTimeout, sigCh); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// lifecycle is the part of web.Server that serve drives.
type lifecycle interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serve runs srv until stop fires, then lets running imports finish and
// shuts srv down. It returns only after Shutdown has completed.
func serve(srv lifecycle, limiter *core.ImportLimiter, timeout time.Duration, stop <-chan os.Signal) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-stop

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	return nil
}

// openStore connects to PostgreSQL, migrating it when configured. Without
// a DATABASE_URL the buyers live in memory and are lost on exit.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store, func(), error) {
	if cfg.URL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		return database.NewMemoryStore(), func() {}, nil
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, cfg.URL, nil); err != nil {
			return nil, nil, err
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return database.NewPostgresStore(pool), pool.Close, nil
}
