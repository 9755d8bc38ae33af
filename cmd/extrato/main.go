package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pmfcarvalho/extrato/internal/auth"
	"github.com/pmfcarvalho/extrato/internal/config"
	"github.com/pmfcarvalho/extrato/internal/converter"
	"github.com/pmfcarvalho/extrato/internal/database"
	"github.com/pmfcarvalho/extrato/internal/logging"
	"github.com/pmfcarvalho/extrato/internal/server"
	"github.com/pmfcarvalho/extrato/internal/storage"
	"github.com/pmfcarvalho/extrato/internal/stripe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var artifacts storage.Store
	s3cfg := storage.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}
	if s3cfg.Configured() {
		artifacts = storage.NewS3Store(s3cfg)
		logger.Info("using s3 artifact storage", "bucket", cfg.S3Bucket)
	} else {
		local, err := storage.NewLocalStore(cfg.StorageDir)
		if err != nil {
			slog.Error("failed to set up artifact storage", "error", err)
			os.Exit(1)
		}
		artifacts = local
		logger.Info("using local artifact storage", "dir", cfg.StorageDir)
	}

	srv := server.New(
		db,
		auth.NewTokens(cfg.JWTSecret),
		converter.NewHTTPEngine(cfg.ExtractorURL),
		artifacts,
		stripe.NewClient(stripe.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		}),
		logger,
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Conversions run synchronously within the upload request, so the
		// write timeout has to outlast the extraction engine's own timeout.
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan struct{})
	go srv.CleanupLoop(stop)

	go func() {
		slog.Info("extrato starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	close(stop)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
