package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/appcontext"
	"github.com/RoyceAzure/lab/retail/internal/config"
	"github.com/RoyceAzure/lab/retail/internal/pkg/logger"
	"github.com/RoyceAzure/lab/retail/internal/pkg/ratelimit"
	"github.com/RoyceAzure/lab/retail/internal/pkg/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("retail stopped")
	}
}

func run() error {
	cf, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Setup(cf.LogLevel, cf.LogPretty)
	config.Watch(func(next *config.Config) {
		lvl := logger.SetLevel(next.LogLevel)
		log.Info().Str("level", lvl.String()).Msg("log level reloaded")
	})

	// 設置訊號監聽
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cf.ServiceName, version, cf.OtlpEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	app, err := appcontext.NewApplicationContext(ctx, cf)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cf.HttpPort),
		Handler:           newRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.PromotionSweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), appcontext.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("application shutdown error")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited properly")
	return nil
}

// newRouter 只提供維運端點
func newRouter(app *appcontext.ApplicationContext) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ratelimit.Middleware(ratelimit.NewTokenBucket(app.Cf.OpsRateLimitCapacity, app.Cf.OpsRateLimitPerSecond)))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := app.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	return r
}
