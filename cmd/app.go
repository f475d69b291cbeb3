package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/database"
	"github.com/iliyamo/slot-reservation/internal/obs"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/service"
)

// app bundles what every database-backed command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	db     *database.DB
	events *queue.Publisher
	trace  func(context.Context) error
}

func loadApp(ctx context.Context, migrateUp bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, trace: obs.NoopShutdown}
	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint, cfg.Env)
		if err != nil {
			// tracing is optional; keep serving without it
			logger.Warn("tracing disabled", "err", err)
		} else {
			a.trace = shutdown
		}
	}

	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	if migrateUp {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.EventsEnabled {
		a.events = queue.NewPublisher(cfg.RabbitURL, cfg.EventExchange, cfg.EventQueue, logger)
	}
	return a, nil
}

// engine builds the reservation engine.  cache may be nil.
func (a *app) engine(cache service.CacheInvalidator) *service.Engine {
	loc, _ := a.cfg.Location()
	opts := service.Options{
		Location:    loc,
		HorizonDays: a.cfg.HorizonDays,
		Logger:      a.logger,
		Cache:       cache,
	}
	if a.events != nil {
		opts.Events = a.events
	}
	return service.NewEngine(a.db, opts)
}

func (a *app) Close(ctx context.Context) {
	if a.events != nil {
		_ = a.events.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if err := a.trace(ctx); err != nil {
		a.logger.Warn("tracer shutdown", "err", err)
	}
}
