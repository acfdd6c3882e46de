package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/quickai/quickai/internal/config"
	"github.com/quickai/quickai/internal/domain/catalog"
	"github.com/quickai/quickai/internal/domain/clock"
	"github.com/quickai/quickai/internal/domain/quota"
	logpkg "github.com/quickai/quickai/internal/logger"
	"github.com/quickai/quickai/internal/metrics"
	chiTransport "github.com/quickai/quickai/internal/transport/chi"
	openaiGen "github.com/quickai/quickai/internal/transport/openai"
	engineuc "github.com/quickai/quickai/internal/usecase/engine"
	entitlementuc "github.com/quickai/quickai/internal/usecase/entitlement"
	healthuc "github.com/quickai/quickai/internal/usecase/health"
	relayuc "github.com/quickai/quickai/internal/usecase/relay"
	retentionuc "github.com/quickai/quickai/internal/usecase/retention"
	"github.com/quickai/quickai/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting quickai relay",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("timezone", cfg.Quota.Timezone),
	)

	metrics.Register()

	ctx := context.Background()
	storage, err := openBackend(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer storage.close()
	logger.Info("Connected to storage")

	cal, err := clock.LoadCalendar(clock.System{}, cfg.Quota.Timezone)
	if err != nil {
		logger.Fatal("Invalid quota timezone", zap.Error(err))
	}

	cat, err := buildCatalog(cfg.Catalog)
	if err != nil {
		logger.Fatal("Invalid model catalog", zap.Error(err))
	}

	generator := openaiGen.NewGenerator(&openaiGen.Config{
		APIKey:       cfg.Generation.APIKey,
		BaseURL:      cfg.Generation.BaseURL,
		ImageBaseURL: cfg.Generation.ImageBaseURL,
		ImageWidth:   cfg.Generation.ImageWidth,
		ImageHeight:  cfg.Generation.ImageHeight,
		ImageSeed:    cfg.Generation.ImageSeed,
		Provider:     cfg.Generation.Provider,
		Timeout:      time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:       logger,
	})

	// Use case services
	entSvc := entitlementuc.New(storage.ents, cal)
	limits := quota.Limits{Text: cfg.Quota.TextDailyLimit, Image: cfg.Quota.ImageDailyLimit}
	engineSvc := engineuc.New(entSvc, storage.usage, storage.prefs, cal, limits, logger)
	relaySvc := relayuc.New(engineSvc, cat, generator)

	// Pass a nil interface, not a typed nil pointer, when the upstream health check is off.
	var genChecker healthuc.GeneratorChecker
	if cfg.Generation.HealthCheck {
		genChecker = generator
	}
	healthSvc := healthuc.New(storage.pinger, genChecker, 3*time.Second)

	scheduler := startRetention(&cfg, storage, cal, logger)

	server := chiTransport.NewServer(engineSvc, relaySvc, healthSvc, logger)
	limiter := chiTransport.NewRateLimiter(chiTransport.RateLimitConfig{
		RPS:   cfg.HTTP.RateLimitRPS,
		Burst: cfg.HTTP.RateLimitBurst,
	})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(limiter.Middleware())
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys, cfg.Auth.AdminKeys))
	r.Use(metrics.Middleware("/metrics"))
	server.Routes(r, chiTransport.AdminAuthMiddleware(cfg.Auth.AdminKeys))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	logger.Info("Server stopped gracefully")
}

// startRetention schedules the usage sweep on backends that need one. Returns nil when disabled.
func startRetention(cfg *config.Config, b *backend, cal *clock.Calendar, logger *zap.Logger) *retentionuc.Scheduler {
	if b.usagePruner == nil || cfg.Retention.UsageDays <= 0 {
		return nil
	}

	var entPruner retentionuc.EntitlementPruner
	if cfg.Retention.PruneExpired && b.entPruner != nil {
		entPruner = b.entPruner
	}

	job, err := retentionuc.New(b.usagePruner, entPruner, cal, cfg.Retention.UsageDays, logger)
	if err != nil {
		logger.Fatal("Invalid retention settings", zap.Error(err))
	}
	scheduler, err := retentionuc.Schedule(job, cfg.Retention.Schedule, cal.Location(),
		time.Duration(cfg.Retention.SweepTimeoutSec)*time.Second, logger)
	if err != nil {
		logger.Fatal("Invalid retention schedule", zap.Error(err))
	}
	scheduler.Start()
	return scheduler
}

// buildCatalog returns the configured catalog, or the built-in one when none is configured.
func buildCatalog(cc config.CatalogConfig) (*catalog.Catalog, error) {
	if !cc.IsCustom() {
		return catalog.Default(), nil
	}

	toModels := func(in []config.ModelConfig) []catalog.Model {
		out := make([]catalog.Model, 0, len(in))
		for _, m := range in {
			out = append(out, catalog.Model{
				Name:         m.Name,
				Description:  m.Description,
				Premium:      m.Premium,
				SystemPrompt: m.SystemPrompt,
			})
		}
		return out
	}

	agents := make([]catalog.Agent, 0, len(cc.Agents))
	for _, a := range cc.Agents {
		agents = append(agents, catalog.Agent{Name: a.Name, Description: a.Description, SystemPrompt: a.SystemPrompt})
	}

	prompt := cc.DefaultSystemPrompt
	if prompt == "" {
		prompt = catalog.DefaultSystemPrompt
	}
	return catalog.New(toModels(cc.TextModels), toModels(cc.ImageModels), agents, prompt)
}
