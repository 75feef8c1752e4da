package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/referral-labels/internal/telemetry"
	"github.com/referral-labels/internal/web"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the labels web API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := ctx.serverDeps(runCtx)
			if err != nil {
				return err
			}
			server, err := web.NewServer(cfg, deps)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			ctx.log().Info("Features enabled",
				zap.Bool("export", cfg.Features.ExportEnabled),
				zap.Bool("correction", cfg.Features.CorrectionEnabled),
				zap.String("geocoder", cfg.Geocoder.Provider),
				zap.Bool("auth", cfg.Server.AuthToken != ""))
			return server.Start(runCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config)")
	return cmd
}

func (c *commandContext) serverDeps(ctx context.Context) (web.Deps, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return web.Deps{}, err
	}
	deps := web.Deps{
		Store:   st,
		Builder: c.builder(),
		Logger:  c.log(),
		Metrics: telemetry.Default(),
	}

	if c.config.Features.CorrectionEnabled {
		svc, tracker, err := c.correctionService(ctx, st)
		if err != nil {
			return web.Deps{}, err
		}
		deps.Correction = svc
		deps.Audit = tracker
	} else if deps.Audit, err = c.auditTracker(ctx, st); err != nil {
		return web.Deps{}, err
	}

	if c.config.Features.ExportEnabled {
		exporter, err := c.exporter()
		if err != nil {
			return web.Deps{}, err
		}
		deps.Exporter = exporter
	}
	return deps, nil
}
