package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/handler"
	"github.com/iliyamo/slot-reservation/internal/middleware"
	"github.com/iliyamo/slot-reservation/internal/router"
	"github.com/iliyamo/slot-reservation/internal/service"
)

func newServeCmd() *cobra.Command {
	var (
		migrateUp     bool
		generateEvery time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := loadApp(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			redisCfg, err := config.LoadRedisConfig()
			if err != nil {
				return err
			}
			cacheCfg, err := config.LoadCacheConfig()
			if err != nil {
				return err
			}
			limitCfg, err := config.LoadRateLimitConfig()
			if err != nil {
				return err
			}

			rdb := config.NewRedisClient(redisCfg)
			if rdb == nil {
				a.logger.Warn("redis unavailable; rate limiting and availability cache disabled")
			} else {
				defer rdb.Close()
			}
			cache := middleware.NewAvailabilityCache(cacheCfg, rdb, a.logger)
			limiter := middleware.NewTokenBucket(limitCfg, rdb, a.logger)
			engine := a.engine(cache)

			if generateEvery > 0 {
				go runGenerator(ctx, engine, a.logger, generateEvery)
			}

			e := newEcho(a)
			router.RegisterRoutes(e, a.db)
			router.RegisterPublic(e, handler.NewAvailabilityHandler(engine, a.logger), cache)
			router.RegisterCustomer(e, handler.NewBookingHandler(engine, a.logger), a.cfg.JWTSecret, limiter)
			router.RegisterMerchant(e, handler.NewAvailabilityHandler(engine, a.logger), a.cfg.JWTSecret)

			addr := ":" + a.cfg.Port
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", addr, "driver", a.db.Dialect.Name)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			sctx, scancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer scancel()
			return e.Shutdown(sctx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	cmd.Flags().DurationVar(&generateEvery, "generate-every", 0, "regenerate availability for all stores on this interval (0 disables)")
	return cmd
}

func newEcho(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				a.logger.ErrorContext(c.Request().Context(), "request", append(attrs, "err", v.Error)...)
				return nil
			}
			a.logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))
	return e
}

// runGenerator extends availability for every store until ctx ends.
func runGenerator(ctx context.Context, engine *service.Engine, logger *slog.Logger, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		generateOnce(ctx, engine, logger)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// generateOnce runs one generation pass over all stores and logs the
// outcome.  Errors caused by ctx ending are not reported.
func generateOnce(ctx context.Context, engine *service.Engine, logger *slog.Logger) {
	created, err := engine.GenerateAllStores(ctx, 0)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "periodic generation finished", "created", created)
	case ctx.Err() == nil:
		logger.ErrorContext(ctx, "periodic generation failed", "created", created, "err", err)
	}
}
