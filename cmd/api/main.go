// Package main is the entrypoint for the expense tracker API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/expensetrack/expensetrack/internal/cache"
	"github.com/expensetrack/expensetrack/internal/config"
	"github.com/expensetrack/expensetrack/internal/handler"
	"github.com/expensetrack/expensetrack/internal/metrics"
	"github.com/expensetrack/expensetrack/internal/middleware"
	"github.com/expensetrack/expensetrack/internal/repository"
	"github.com/expensetrack/expensetrack/internal/server"
	"github.com/expensetrack/expensetrack/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			logger.Error("failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return err
		}
		logger.Info("migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return err
	}
	logger.Info("connected to Redis")

	var (
		recorder metrics.Recorder = metrics.NewNoop()
		exporter http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		recorder = prom
		exporter = prom.Handler()
	}

	authService := service.NewAuthService(repo, repo, cacheClient, service.AuthConfig{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}, recorder, logger)
	expenseService := service.NewExpenseService(repo, recorder)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		_ = service.NewTokenSweeper(repo, cfg.TokenSweepInterval, logger).Run(sweepCtx)
	}()

	r := setupRouter(routerDeps{
		base:     handler.New(),
		health:   handler.NewHealthHandler(repo, cacheClient),
		metrics:  handler.NewMetricsHandler(exporter),
		auth:     handler.NewAuthHandler(authService, logger),
		expenses: handler.NewExpenseHandler(expenseService, logger),
		authn:    authService,
		limiter:  cacheClient,
		recorder: recorder,
	}, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Stopped in reverse order: sweeper, then Redis, then PostgreSQL.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})
	srv.OnShutdown("token_sweeper", func(ctx context.Context) error {
		stopSweep()
		select {
		case <-sweeperDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"metrics", cfg.MetricsEnabled,
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	base     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	auth     *handler.AuthHandler
	expenses *handler.ExpenseHandler
	authn    middleware.Authenticator
	limiter  middleware.Limiter
	recorder metrics.Recorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics(d.recorder))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:    logger,
		Limiter:   d.limiter,
		Metrics:   d.recorder,
		IPEnabled: cfg.RateLimitAuthEnabled,
		IPRPS:     cfg.RateLimitAuthRPS,
		IPBurst:   cfg.RateLimitAuthBurst,
	}
	if cfg.RateLimitAPIEnabled {
		rateLimitCfg.UserRPM = cfg.RateLimitAPIRPM
		rateLimitCfg.UserBurst = cfg.RateLimitAPIBurst
	}

	requireAuth := middleware.Auth(middleware.AuthConfig{
		Logger:        logger,
		Authenticator: d.authn,
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitIP(rateLimitCfg))
				r.Post("/register", d.auth.Register)
				r.Post("/login", d.auth.Login)
				r.Post("/refresh", d.auth.Refresh)
			})
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", d.auth.Logout)
				r.Get("/me", d.auth.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RateLimitUser(rateLimitCfg))

			r.Put("/user", d.auth.UpdateProfile)

			r.Route("/expense", func(r chi.Router) {
				r.Get("/", d.expenses.List)
				r.Post("/", d.expenses.Create)
				r.Put("/{id}", d.expenses.Update)
				r.Delete("/{id}", d.expenses.Delete)
			})
		})
	})

	r.NotFound(d.base.NotFound)
	r.MethodNotAllowed(d.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
