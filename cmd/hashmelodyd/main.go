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
	"strings"
	"syscall"
	"time"

	"hashmelody/config"
	"hashmelody/core"
	"hashmelody/core/genesis"
	"hashmelody/gateway/middleware"
	"hashmelody/gateway/routes"
	"hashmelody/native/oracle"
	"hashmelody/observability"
	"hashmelody/observability/logging"
	telemetry "hashmelody/observability/otel"
	"hashmelody/storage"
	"hashmelody/storage/receipts"
)

const serviceName = "hashmelodyd"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a YAML genesis file (overrides HASHMELODY_GENESIS and config GenesisFile)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *genesisFlag); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, genesisOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Environment
	if override := strings.TrimSpace(os.Getenv("HASHMELODY_ENV")); override != "" {
		env = override
	}
	logger, err := logging.SetupWithOptions(serviceName, env, logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	endpoint := cfg.Telemetry.Endpoint
	if override := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); override != "" {
		endpoint = override
	}
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: env,
		Endpoint:    endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	secret, err := cfg.MintSecret()
	if err != nil {
		return err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open ledger database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, core.Options{
		MintSecret:             secret,
		PriceParams:            oracle.PriceParams{K: cfg.Pricing.K, M: cfg.Pricing.M},
		LiquidityThreshold:     cfg.Vault.LiquidityThreshold,
		BootstrapBaseUnits:     cfg.Bootstrap.BaseUnits,
		BootstrapAllocationBps: cfg.Bootstrap.AllocationBps,
		Logger:                 logger,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	node.Subscribe(observability.EventCounter{})
	meter, err := telemetry.NewEventMeter()
	if err != nil {
		return fmt.Errorf("create event meter: %w", err)
	}
	node.Subscribe(meter)
	stream := routes.NewStream(0, logger)
	node.Subscribe(stream)

	var history routes.History
	if strings.TrimSpace(cfg.ReceiptsDB) != "" {
		journal, err := receipts.Open(cfg.ReceiptsDB, logger)
		if err != nil {
			return err
		}
		defer journal.Close()
		node.Subscribe(journal)
		history = journal
	}

	if err := applyGenesis(ctx, node, resolveGenesisPath(genesisOverride, cfg.GenesisFile), logger); err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"v1": {RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute), Burst: cfg.RateLimit.Burst},
	}, logger)
	handler, err := routes.New(routes.Config{
		Ledger:        node,
		History:       history,
		Stream:        stream,
		RateLimiter:   limiter,
		RateLimitKey:  "v1",
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{ServiceName: serviceName, LogRequests: env != "prod"}, logger),
	})
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", slog.String("address", cfg.ListenAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func resolveGenesisPath(flagValue, configured string) string {
	if path := strings.TrimSpace(flagValue); path != "" {
		return path
	}
	if path := strings.TrimSpace(os.Getenv("HASHMELODY_GENESIS")); path != "" {
		return path
	}
	return strings.TrimSpace(configured)
}

func applyGenesis(ctx context.Context, node *core.Node, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return err
	}
	err = genesis.Apply(ctx, node, spec, logger)
	if errors.Is(err, genesis.ErrAlreadyApplied) {
		logger.Info("genesis already applied", slog.String("path", path))
		return nil
	}
	return err
}
