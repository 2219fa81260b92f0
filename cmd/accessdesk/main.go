package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/accessdesk/accessdesk/internal/app"
	"github.com/accessdesk/accessdesk/internal/auth"
	"github.com/accessdesk/accessdesk/internal/observability"
	"github.com/accessdesk/accessdesk/internal/platform/cache"
	"github.com/accessdesk/accessdesk/internal/platform/db"
	"github.com/accessdesk/accessdesk/internal/platform/httpx"
	"github.com/accessdesk/accessdesk/internal/rbac"
	"github.com/accessdesk/accessdesk/internal/roles"
	"github.com/accessdesk/accessdesk/internal/users"
)

func main() {
	if app.StartupSkipped() {
		slog.Default().Info("startup skipped by ACCESSDESK_SKIP_STARTUP")
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("accessdesk stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if cfg.PGAutoMigrate {
		applied, err := db.Migrate(ctx, dbpool)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", slog.Any("versions", applied))
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	responder := httpx.NewResponder(logger, !cfg.IsProduction())

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiresIn)
	if err != nil {
		return err
	}
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	rbacRepo := rbac.NewRepository(dbpool)
	resolver := rbac.NewResolver(rbacRepo)
	rbacMiddleware := rbac.Middleware{
		Tokens:         tokens,
		Principals:     rbacRepo,
		Resolver:       resolver,
		Responder:      responder,
		Logger:         logger,
		Recorder:       metrics,
		SuperAdminRole: cfg.SuperAdminRole,
	}

	authService := auth.NewService(auth.ServiceConfig{
		Repo:        auth.NewRepository(dbpool),
		Tokens:      tokens,
		Refresh:     auth.NewRedisRefreshStore(redisClient, cfg.JWTRefreshExpiresIn),
		Hasher:      hasher,
		Resolver:    resolver,
		Logger:      logger,
		DefaultRole: cfg.DefaultRole,
	})
	authHandler := auth.NewHandler(logger, authService, responder, rbacMiddleware, cfg.SuperAdminRole, app.LoginLimiter(cfg, responder))

	usersService := users.NewService(users.NewRepository(dbpool), hasher, cfg.SuperAdminRole)
	usersHandler := users.NewHandler(logger, usersService, responder, rbacMiddleware, cfg.SuperAdminRole)

	rolesService := roles.NewService(roles.NewRepository(dbpool), resolver, cfg.SuperAdminRole)
	rolesHandler := roles.NewHandler(logger, rolesService, responder, rbacMiddleware)

	permissionsHandler := rbac.NewPermissionsHandler(logger, rbac.NewService(rbacRepo), responder, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Responder:          responder,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		Metrics:            metrics,
		Checks: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    cache.Checker{Client: redisClient},
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	return g.Wait()
}
