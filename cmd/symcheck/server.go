package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/symcheck/symcheck/internal/config"
	"github.com/symcheck/symcheck/internal/domain/triage"
	"github.com/symcheck/symcheck/internal/platform/db"
	"github.com/symcheck/symcheck/internal/platform/middleware"
)

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	svc, err := newService(cfg, b.store, logger)
	if err != nil {
		return err
	}
	// Load the corpus up front so a broken store fails at startup rather
	// than on the first search.
	if _, err := svc.Corpus().Reload(ctx); err != nil {
		return err
	}
	if err := svc.Corpus().Schedule(ctx, cfg.CorpusRefreshSchedule); err != nil {
		return err
	}

	e := newServer(cfg, logger, b, svc)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("driver", b.driver).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(cfg *config.Config, logger zerolog.Logger, b *backend, svc *triage.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if b.pinger != nil {
		var stats func() *db.PoolStats
		if b.pool != nil {
			stats = func() *db.PoolStats { return db.GetPoolStats(b.pool) }
		}
		e.GET("/health/db", db.HealthHandler(b.driver, b.pinger, stats))
	}

	api := e.Group("/api/v1")
	if b.pool != nil {
		api.Use(db.SessionMiddleware(b.pool))
	}
	triage.NewHandler(svc).RegisterRoutes(api)

	return e
}
