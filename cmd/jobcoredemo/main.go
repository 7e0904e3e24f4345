// jobcoredemo runs an in-process scheduler instance behind an HTTP
// introspection API, the way the teacher's cmd/scheduler runs its
// dispatcher/worker/reaper behind a metrics server.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/jobcore"
	"github.com/ErlanBelekov/jobcore/config"
	"github.com/ErlanBelekov/jobcore/internal/health"
	"github.com/ErlanBelekov/jobcore/internal/httpapi"
	httpmw "github.com/ErlanBelekov/jobcore/internal/httpapi/middleware"
	ctxlog "github.com/ErlanBelekov/jobcore/internal/log"
	"github.com/ErlanBelekov/jobcore/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		stop()
		log.Fatalf("register metrics: %v", err)
	}
	if err := httpmw.Register(prometheus.DefaultRegisterer); err != nil {
		stop()
		log.Fatalf("register http metrics: %v", err)
	}

	sched := jobcore.New(cfg, newDemoJobFactory(logger), logger)
	sched.Start(ctx)

	checker := health.NewChecker(sched, logger, prometheus.DefaultRegisterer)
	hmacKey := []byte(envOr("JOBCORE_HMAC_KEY", "dev-only-shared-secret"))

	router := httpapi.NewRouter(logger, sched, hmacKey)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Liveness(c.Request.Context()))
	})
	router.GET("/readyz", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})

	srv := http.Server{Addr: ":8080", Handler: router}
	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	go func() {
		logger.Info("jobcoredemo http server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
		}
	}()
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Shutdown(shutdownCtx, true)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(logLevel string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if logLevel == "debug" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
