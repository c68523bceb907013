// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lokswami/newsroom/internal/ai"
	"github.com/lokswami/newsroom/internal/auth"
	"github.com/lokswami/newsroom/internal/cache"
	"github.com/lokswami/newsroom/internal/config"
	"github.com/lokswami/newsroom/internal/handler/api"
	"github.com/lokswami/newsroom/internal/logging"
	"github.com/lokswami/newsroom/internal/metrics"
	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/scheduler"
	"github.com/lokswami/newsroom/internal/service"
	"github.com/lokswami/newsroom/internal/store"
	"github.com/lokswami/newsroom/internal/version"
	"github.com/lokswami/newsroom/internal/webhook"
	"github.com/lokswami/newsroom/internal/workflow"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// requestTimeout bounds every request. It must stay above NEWSROOM_AI_TIMEOUT.
const requestTimeout = 60 * time.Second

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "newsroom - article publication workflow API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_JWT_ACCESS_SECRET   Access token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_JWT_REFRESH_SECRET  Refresh token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_DB_PATH             SQLite database path (default: ./data/newsroom.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_REDIS_URL           Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_OPENAI_API_KEY      Enables the AI assistant endpoints (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSROOM_WEBHOOK_URLS        Comma-separated receivers of publication events (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("newsroom %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logLevel := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	dbCfg := store.DefaultDBConfig()
	dbCfg.BusyTimeout = time.Duration(cfg.DBBusyTimeoutMS) * time.Millisecond
	db, err := store.NewDBWithConfig(cfg.DBPath, dbCfg)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(logging.NewEventLogHandler(textHandler, db)))
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	appCache := cache.New(ctx, cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheDuration(),
		MaxItems:   cfg.CacheMaxSize,
	})
	defer func() { _ = appCache.Close() }()

	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        "newsroom",
	})

	events := service.NewEventService(db)
	users := service.NewUserService(db, tokens, events)
	categories := service.NewCategoryService(db, appCache, cfg.CacheDuration(), events)

	endpoints := make([]webhook.Endpoint, len(cfg.WebhookURLs))
	for i, u := range cfg.WebhookURLs {
		endpoints[i] = webhook.Endpoint{URL: u, Secret: cfg.WebhookSecret}
	}
	webhookCfg := webhook.DefaultConfig()
	webhookCfg.Endpoints = endpoints
	webhookCfg.Workers = cfg.WebhookWorkers
	dispatcher := webhook.NewDispatcher(slog.Default(), webhookCfg)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	var articles *service.ArticleService
	engine := workflow.NewEngine(db,
		workflow.WithObserver(metrics.WorkflowObserver{}),
		workflow.WithAuditor(events),
		workflow.WithMaxAttempts(cfg.WriteMaxAttempts),
		workflow.WithCountListener(func(ctx context.Context, ids []string) {
			categories.CountsChanged(ctx, ids)
			articles.CountsChanged(ctx, ids)
		}),
		workflow.WithTransitionListener(dispatcher.OnTransition),
	)
	articles = service.NewArticleService(db, engine, categories, appCache, cfg.CacheDuration())

	var provider ai.Provider
	if cfg.AIEnabled() {
		provider = ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		slog.Info("AI assistant enabled", "model", cfg.OpenAIModel)
	} else {
		slog.Info("AI assistant disabled", "reason", "NEWSROOM_OPENAI_API_KEY not set")
	}
	assistant := ai.NewAssistant(provider, ai.Options{
		Model:      cfg.OpenAIModel,
		Timeout:    cfg.AITimeout,
		MaxRetries: cfg.AIMaxRetries,
	})

	// Rate limiting
	loginProtection := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       float64(cfg.AuthRateLimit) / 60,
		IPBurst:           cfg.AuthRateLimit,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	})
	defer loginProtection.Close()

	apiLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, middleware.CodeRateLimited,
		"Too many requests, please try again later")
	aiLimiter := middleware.NewRateLimiter(cfg.AIRateLimit, middleware.CodeAIRateLimited,
		"Too many AI requests, please try again later")
	stopPruning := make(chan struct{})
	defer close(stopPruning)
	apiLimiter.StartPruning(10*time.Minute, stopPruning)
	aiLimiter.StartPruning(10*time.Minute, stopPruning)

	// Background jobs
	sched := scheduler.New(slog.Default())
	if err := sched.RegisterMaintenance(scheduler.Config{
		RecountSchedule: cfg.RecountSchedule,
		Recounter:       categories,
		EventRetention:  time.Duration(cfg.EventRetentionDays) * 24 * time.Hour,
		Events:          events,
	}); err != nil {
		return fmt.Errorf("registering scheduled jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	poolStats := metrics.NewPoolStatsCollector(db)
	poolStats.Start(15 * time.Second)
	defer poolStats.Stop()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.Metrics)
	r.Use(middleware.Timeout(requestTimeout))

	r.Handle("/metrics", promhttp.Handler())

	handler := api.NewHandler(api.Deps{
		DB:              db,
		Users:           users,
		Articles:        articles,
		Categories:      categories,
		Engine:          engine,
		Assistant:       assistant,
		LoginProtection: loginProtection,
		Version:         versionInfo,
	})
	handler.Routes(r, api.RouterConfig{
		Authenticator: middleware.NewAuthenticator(db, tokens),
		APILimiter:    apiLimiter,
		AILimiter:     aiLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
