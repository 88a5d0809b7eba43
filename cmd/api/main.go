package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/api/rest"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/cache"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/database"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/repository"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/metrics"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/kyc"
	"github.com/davidleathers/p2p-trade-desk-backend/internal/service/risk"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("application failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting p2p trade desk backend",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port)

	zapLogger, err := newZapLogger(cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to create zap logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  30 * time.Second,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	registry, err := metrics.NewRegistry("p2p-trade-desk")
	if err != nil {
		return fmt.Errorf("failed to create metrics registry: %w", err)
	}

	pool, err := database.NewConnectionPool(ctx, &cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer pool.Close()
	pool.SetObserver(registry)

	cacheManager, err := cache.NewCacheManager(&cfg.Redis, zapLogger)
	if err != nil {
		return err
	}
	defer cacheManager.Close()
	registerRedisPoolMetrics(cacheManager)

	orders := repository.NewOrderRepository(pool.DB())
	results := repository.NewResultRepository(pool.DB())
	assessments := repository.NewCachedResultSink(results, cacheManager.Cache, cfg.Redis.AssessmentTTL, registry, logger)

	riskCfg := riskConfig(cfg.Risk)
	if err := riskCfg.Validate(); err != nil {
		return fmt.Errorf("invalid risk configuration: %w", err)
	}
	kycCfg := kycConfig(cfg.KYC)
	if err := kycCfg.Validate(); err != nil {
		return fmt.Errorf("invalid kyc configuration: %w", err)
	}

	kycProviders, clients := buildProviders(cfg.Providers, cacheManager.Cache, logger)
	registerCircuitMetrics(clients)

	services := rest.Services{
		Risk:        risk.NewService(orders, orders, assessments, registry, logger, riskCfg),
		KYC:         kyc.NewService(orders, kycProviders, results, registry, logger, kycCfg),
		Assessments: assessments,
	}

	routerCfg := rest.DefaultConfig()
	routerCfg.Version = cfg.Version
	routerCfg.Logger = logger
	routerCfg.Auth = rest.AuthConfig{
		JWTSecret: []byte(cfg.Security.JWTSecret),
		Issuer:    cfg.Security.JWTIssuer,
		Leeway:    30 * time.Second,
	}
	if cfg.Security.RateLimit.Enabled {
		routerCfg.RateLimiter = cacheManager.RateLimiter
		routerCfg.RateLimit = rest.RateLimitConfig{
			Requests: cfg.Security.RateLimit.RequestsPerWindow,
			Window:   cfg.Security.RateLimit.Window,
		}
	}
	routerCfg.Metrics = apiMetrics{registry: registry}
	routerCfg.MetricsHandler = MetricsHandler()
	routerCfg.Health = rest.NewHealthService(cfg.Version, 5*time.Second,
		rest.NewCheckFunc("database", pool.Ping),
		rest.NewCheckFunc("redis", cacheManager.HealthCheck),
	)

	server := rest.NewServer(rest.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, rest.NewRouter(routerCfg, services), logger)

	if err := server.Run(ctx, nil); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

func newZapLogger(environment string) (*zap.Logger, error) {
	if environment == "production" || environment == "staging" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
