package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"pairamm/config"
	"pairamm/core"
	"pairamm/core/genesis"
	"pairamm/core/state"
	gatewayconfig "pairamm/gateway/config"
	"pairamm/gateway/middleware"
	"pairamm/gateway/routes"
	"pairamm/observability/logging"
	telemetry "pairamm/observability/otel"
	"pairamm/storage"
)

func main() {
	var cfgPath string
	var gatewayPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to node configuration")
	flag.StringVar(&gatewayPath, "gateway-config", "", "path to gateway configuration (overrides GatewayConfig)")
	flag.Parse()

	if err := run(cfgPath, gatewayPath); err != nil {
		slog.Error("ammd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath, gatewayPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.SetupWithFile("ammd", cfg.Environment, logging.ParseLevel(cfg.LogLevel), logging.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "ammd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	db, err := storage.Open(cfg.StorageBackend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.StorageBackend, err)
	}
	defer db.Close()

	exec := core.NewExecutor(state.NewStore(db))
	exec.SetLogger(logger)
	exec.Pauses().Set("amm", cfg.Pauses.AMM)
	if cfg.Pauses.AMM {
		logger.Warn("amm module paused by configuration")
	}

	spec, err := cfg.Genesis()
	if err != nil {
		return fmt.Errorf("build genesis: %w", err)
	}
	result, err := genesis.Apply(ctx, exec, spec, logger)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info("state ready",
		"tokens_registered", result.TokensRegistered,
		"balances_seeded", result.BalancesSeeded,
		"pools_initialised", len(result.PoolsInitialised))

	go runTicker(ctx, exec, time.Duration(cfg.TickIntervalMs)*time.Millisecond)

	if strings.TrimSpace(gatewayPath) == "" {
		gatewayPath = resolvePath(filepath.Dir(cfgPath), cfg.GatewayConfig)
	}
	gwCfg, err := gatewayconfig.Load(gatewayPath)
	if err != nil {
		return fmt.Errorf("load gateway config: %w", err)
	}
	return serve(ctx, logger, exec, gwCfg)
}

// runTicker advances the host tick, which scopes the repeat-trade guard.
func runTicker(ctx context.Context, exec *core.Executor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exec.AdvanceTick()
		}
	}
}

func serve(ctx context.Context, logger *slog.Logger, exec *core.Executor, cfg gatewayconfig.Config) error {
	rateLimits := make(map[string]middleware.RateLimit, len(cfg.RateLimits))
	for _, entry := range cfg.RateLimits {
		rateLimits[entry.ID] = middleware.RateLimit{
			RequestsPerMinute: entry.RequestsPerMinute,
			Burst:             entry.Burst,
		}
	}

	router := routes.New(routes.Config{
		Backend: exec,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:        cfg.Auth.Enabled,
			HMACSecret:     cfg.Auth.HMACSecret,
			Issuer:         cfg.Auth.Issuer,
			Audience:       cfg.Auth.Audience,
			ScopeClaim:     cfg.Auth.ScopeClaim,
			OptionalPaths:  cfg.Auth.OptionalPaths,
			AllowAnonymous: cfg.Auth.AllowAnonymous,
			ClockSkew:      cfg.Auth.ClockSkew,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(rateLimits, logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			LogRequests: cfg.Observability.LogRequests,
			Metrics:     cfg.Observability.Metrics,
			Tracing:     cfg.Observability.Tracing,
		}, logger),
		CORS:   middleware.CORSConfig{AllowedOrigins: cfg.CORS.AllowedOrigins},
		Logger: logger,
	})
	if !cfg.Auth.Enabled {
		logger.Warn("gateway authentication disabled; callers are taken from " + routes.CallerHeader)
	}

	handler := router
	if cfg.Observability.Tracing {
		handler = otelhttp.NewHandler(router, cfg.Observability.ServiceName)
	}

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		scheme := "http"
		var serveErr error
		if cfg.Security.TLSEnabled() {
			scheme = "https"
			logger.Info("gateway listening", "addr", scheme+"://"+listener.Addr().String())
			serveErr = server.ServeTLS(listener, cfg.Security.TLSCertFile, cfg.Security.TLSKeyFile)
		} else {
			logger.Info("gateway listening", "addr", scheme+"://"+listener.Addr().String())
			serveErr = server.Serve(listener)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || baseDir == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(baseDir, trimmed)
}
