package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/xerppy/xerppy/internal/app"
	"github.com/xerppy/xerppy/internal/auth"
	"github.com/xerppy/xerppy/internal/platform/db"
	"github.com/xerppy/xerppy/internal/plugins"
	"github.com/xerppy/xerppy/internal/plugins/sample"
	"github.com/xerppy/xerppy/internal/rbac"
	"github.com/xerppy/xerppy/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := migrations.Up(ctx, cfg.PGDSN); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Redis is an optional capability, resolved once here: when absent or
	// unreachable the permission cache stays nil and authorization reads
	// the database directly.
	var permCache *rbac.PermissionCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, permission cache disabled", slog.Any("error", err))
		} else {
			permCache = rbac.NewPermissionCache(redisClient, cfg.PermCacheTTL)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(logger, rbacRepo, permCache)
	if err := rbacService.Seed(ctx); err != nil {
		logger.Error("seed rbac", slog.Any("error", err))
		os.Exit(1)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(logger, authRepo, rbacService, tokens, cfg.BcryptCost)
	gate := auth.Gate{Logger: logger, Tokens: tokens, Users: authRepo}
	authHandler := auth.NewHandler(logger, authService, rbacService, gate)

	registry := plugins.NewRegistry(logger)
	if err := registry.Register(sample.New()); err != nil {
		logger.Error("register plugin", slog.Any("error", err))
		os.Exit(1)
	}
	if err := registry.Init(ctx, plugins.Deps{Logger: logger, Pool: pool}); err != nil {
		logger.Error("init plugins", slog.Any("error", err))
		os.Exit(1)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		Plugins:     registry,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
