package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	apiadapter "github.com/ericfisherdev/timeline/internal/adapter/driven/api"
	memoryadapter "github.com/ericfisherdev/timeline/internal/adapter/driven/memory"
	redisadapter "github.com/ericfisherdev/timeline/internal/adapter/driven/redis"
	sqliteadapter "github.com/ericfisherdev/timeline/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/timeline/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/timeline/internal/adapter/driving/web"
	"github.com/ericfisherdev/timeline/internal/application"
	"github.com/ericfisherdev/timeline/internal/config"
	"github.com/ericfisherdev/timeline/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"api_url", cfg.APIURL,
		"store", cfg.Store,
		"verify_timeout", cfg.VerifyTimeout,
		"login_path", cfg.LoginPath,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the credential backing.
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. Wire the remote API client.
	apiClient, err := apiadapter.NewClient(cfg.APIURL, logger)
	if err != nil {
		return err
	}

	// 5. Metrics registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 6. Application services.
	guard := application.NewSessionGuard(apiClient, cfg.VerifyTimeout, application.NewMetrics(reg), logger)
	feedSvc := application.NewFeedService(apiClient, logger)

	// 7. Driving adapters.
	contexts, err := webhandler.NewBrowserContexts(cfg.CookieKey)
	if err != nil {
		return err
	}
	if cfg.CookieKey == nil {
		logger.Warn("TIMELINE_COOKIE_KEY not set, browser contexts reset on restart")
	}

	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(guard, store, contexts, reg, cfg.LoginPath, logger)
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(guard, feedSvc, store, apiClient, contexts, cfg.LoginPath, logger)
	webhandler.RegisterRoutes(mux, webHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.VerifyTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 8. Serve until the signal context ends, then drain.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore opens the configured credential backing. The returned func
// releases it and never fails.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (driven.CredentialStore, func(), error) {
	switch cfg.Store {
	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("redis connected", "addr", cfg.RedisAddr)
		return redisadapter.NewCredentialRepo(client), func() {
			if err := client.Close(); err != nil {
				logger.Error("error closing redis client", "error", err)
			}
		}, nil

	case config.StoreMemory:
		logger.Warn("using in-memory credential store, credentials do not survive a restart")
		return memoryadapter.NewCredentialRepo(), func() {}, nil

	default:
		// Open database (dual reader/writer with WAL mode).
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}
		logger.Info("database opened", "path", cfg.DBPath)

		// Run migrations on writer connection.
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			closeDB()
			return nil, nil, err
		}
		logger.Info("migrations complete")

		if !cfg.HasSecretKey() {
			logger.Warn("TIMELINE_SECRET_KEY not set, credentials are stored unencrypted")
		}
		repo, err := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		return repo, closeDB, nil
	}
}
