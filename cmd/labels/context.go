package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/audit"
	"github.com/referral-labels/internal/config"
	"github.com/referral-labels/internal/correction"
	"github.com/referral-labels/internal/export"
	"github.com/referral-labels/internal/geocode"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/logging"
	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/store"
	"github.com/referral-labels/internal/telemetry"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	logger     *zap.Logger
	configErr  error

	store     store.Store
	undoGlobs func()
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, debugFlag: debugFlag}
}

// ensureConfig loads .env, the config file and the environment once, and
// installs the global logger.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		config.LoadEnv()
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.debug() {
			cfg.Log.Level = "debug"
		}
		logger, undo, err := logging.Install(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			c.configErr = err
			return
		}
		c.config, c.logger, c.undoGlobs = cfg, logger, undo
	})
	return c.config, c.configErr
}

func (c *commandContext) debug() bool {
	return c.debugFlag != nil && *c.debugFlag
}

func (c *commandContext) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

func (c *commandContext) openStore(ctx context.Context) (store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		Driver:         cfg.Database.Driver,
		URL:            cfg.Database.URL,
		Path:           cfg.Database.Path,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.store = st
	return st, nil
}

// auditTracker returns nil for stores without SQL.
func (c *commandContext) auditTracker(ctx context.Context, st store.Store) (*audit.Tracker, error) {
	sqlStore, ok := st.(*store.SQLStore)
	if !ok {
		return nil, nil
	}
	return audit.NewTracker(ctx, sqlStore.DB(), sqlStore.Dialect())
}

func (c *commandContext) correctionService(ctx context.Context, st store.Store) (*correction.Service, *audit.Tracker, error) {
	cfg := c.config
	std, err := geocode.New(geocode.Options{
		Provider:          cfg.Geocoder.Provider,
		BaseURL:           cfg.Geocoder.BaseURL,
		UserAgent:         cfg.Geocoder.UserAgent,
		Email:             cfg.Geocoder.Email,
		RequestsPerSecond: cfg.Geocoder.RequestsPerSecond,
		Timeout:           cfg.Geocoder.Timeout,
	}, c.log())
	if err != nil {
		return nil, nil, err
	}
	tracker, err := c.auditTracker(ctx, st)
	if err != nil {
		return nil, nil, err
	}

	opts := []correction.ServiceOption{
		correction.WithConcurrency(cfg.Geocoder.Concurrency),
		correction.WithServiceLogger(c.log()),
		correction.WithDebug(c.debug()),
	}
	if tracker != nil {
		opts = append(opts, correction.WithAuditor(tracker))
	}
	return correction.NewService(st, std, opts...), tracker, nil
}

func (c *commandContext) exporter() (*export.Exporter, error) {
	pdfw, err := export.NewPDFWriter(c.config.Export.FontFile)
	if err != nil {
		return nil, err
	}
	return export.NewExporter(pdfw, telemetry.Default(), c.log()), nil
}

func (c *commandContext) builder() *labels.Builder {
	return labels.NewBuilder(c.log(), telemetry.Default())
}

func (c *commandContext) loadRecords(ctx context.Context) ([]model.RawOfficeRecord, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return st.ListOffices(ctx)
}

func (c *commandContext) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log().Warn("Failed to close store", zap.Error(err))
		}
		c.store = nil
	}
	if c.undoGlobs != nil {
		c.undoGlobs()
		c.undoGlobs = nil
	}
}
