package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NunoTeixeiraMota/image-refac/internal/config"
	"github.com/NunoTeixeiraMota/image-refac/internal/converter"
	"github.com/NunoTeixeiraMota/image-refac/internal/handlers"
	"github.com/NunoTeixeiraMota/image-refac/internal/metrics"
	"github.com/NunoTeixeiraMota/image-refac/internal/middleware"
	"github.com/NunoTeixeiraMota/image-refac/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	if _, err := config.LoadEnvFile("config.env"); err != nil {
		slog.Error("load env file", "error", err)
		os.Exit(1)
	}

	cfgPath := os.Getenv("IMAGECONV_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	st, err := store.New(cfg.DataDir, logger)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}

	conv := converter.New(logger, m)

	reclaimer := store.NewReclaimer(st, cfg.CleanupInterval(), cfg.SessionTTL(), logger, m)
	if err := reclaimer.Start(); err != nil {
		logger.Error("start reclaimer", "error", err)
		os.Exit(1)
	}
	defer reclaimer.Stop()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.CORS(),
		middleware.MaxBodySize(cfg.MaxUploadBytes()),
	)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.New(st, conv, cfg, logger, m)
	h.Register(router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down", "grace", shutdownGrace)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("image converter listening", "addr", cfg.Addr, "data_dir", st.Root(), "workers", cfg.Workers)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
