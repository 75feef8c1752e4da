package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/audit"
	"github.com/referral-labels/internal/config"
	"github.com/referral-labels/internal/correction"
	"github.com/referral-labels/internal/export"
	"github.com/referral-labels/internal/geocode"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/logging"
	"github.com/referral-labels/internal/store"
	"github.com/referral-labels/internal/telemetry"
	"github.com/referral-labels/internal/web"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Parse()

	config.LoadEnv()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	logger, undo, err := logging.Install(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer undo()

	fmt.Println("=== Referral Labels Web Interface ===")
	fmt.Printf("Server: http://%s\n", cfg.Server.Addr())
	fmt.Printf("Database: %s\n", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		undo()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := store.Open(ctx, store.Options{
		Driver:         cfg.Database.Driver,
		URL:            cfg.Database.URL,
		Path:           cfg.Database.Path,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	metrics := telemetry.Default()
	deps := web.Deps{
		Store:   st,
		Builder: labels.NewBuilder(logger, metrics),
		Logger:  logger,
		Metrics: metrics,
	}

	if sqlStore, ok := st.(*store.SQLStore); ok {
		if deps.Audit, err = audit.NewTracker(ctx, sqlStore.DB(), sqlStore.Dialect()); err != nil {
			return err
		}
	}

	if cfg.Features.CorrectionEnabled {
		std, err := geocode.New(geocode.Options{
			Provider:          cfg.Geocoder.Provider,
			BaseURL:           cfg.Geocoder.BaseURL,
			UserAgent:         cfg.Geocoder.UserAgent,
			Email:             cfg.Geocoder.Email,
			RequestsPerSecond: cfg.Geocoder.RequestsPerSecond,
			Timeout:           cfg.Geocoder.Timeout,
		}, logger)
		if err != nil {
			return err
		}
		opts := []correction.ServiceOption{
			correction.WithConcurrency(cfg.Geocoder.Concurrency),
			correction.WithServiceLogger(logger),
		}
		if deps.Audit != nil {
			opts = append(opts, correction.WithAuditor(deps.Audit))
		}
		deps.Correction = correction.NewService(st, std, opts...)
	}

	if cfg.Features.ExportEnabled {
		pdfw, err := export.NewPDFWriter(cfg.Export.FontFile)
		if err != nil {
			return err
		}
		deps.Exporter = export.NewExporter(pdfw, metrics, logger)
	}

	server, err := web.NewServer(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Println("\nFeatures enabled:")
	fmt.Printf("  • Export: %v\n", cfg.Features.ExportEnabled)
	fmt.Printf("  • Address correction: %v (%s)\n", cfg.Features.CorrectionEnabled, cfg.Geocoder.Provider)
	fmt.Printf("  • Auth token: %v\n", cfg.Server.AuthToken != "")
	fmt.Println()

	return server.Start(ctx)
}
