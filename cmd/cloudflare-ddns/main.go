// Package main provides the entry point for the Cloudflare DDNS agent.
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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skyfold/cloudflare-ddns/internal/activitylog"
	"github.com/skyfold/cloudflare-ddns/internal/cloudflare"
	"github.com/skyfold/cloudflare-ddns/internal/config"
	"github.com/skyfold/cloudflare-ddns/internal/metrics"
	"github.com/skyfold/cloudflare-ddns/internal/publicip"
	"github.com/skyfold/cloudflare-ddns/internal/scheduler"
	"github.com/skyfold/cloudflare-ddns/internal/server"
	"github.com/skyfold/cloudflare-ddns/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("agent failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(parseLogLevel(cfg.LogLevel))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := metrics.Init(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	st, err := store.New(cfg.DatabasePath, cfg.EncryptionKey, logger)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := bootstrapAdminToken(st, cfg.AdminToken, logger); err != nil {
		return err
	}

	activity := activitylog.New(cfg.ActivityLogPath, logger)

	clientOpts := []cloudflare.Option{cloudflare.WithLogger(logger)}
	if cfg.CloudflareAPIURL != "" {
		clientOpts = append(clientOpts, cloudflare.WithBaseURL(cfg.CloudflareAPIURL))
	}
	client := cloudflare.NewClient(clientOpts...)

	var resolverOpts []publicip.Option
	if cfg.IPv4EchoURL != "" {
		resolverOpts = append(resolverOpts, publicip.WithIPv4URL(cfg.IPv4EchoURL))
	}
	if cfg.IPv6EchoURL != "" {
		resolverOpts = append(resolverOpts, publicip.WithIPv6URL(cfg.IPv6EchoURL))
	}
	resolver := publicip.NewResolver(resolverOpts...)

	sched := scheduler.New(st, resolver, client, activity, logger)
	defer sched.Close()

	restoreCtx, cancelRestore := context.WithCancel(context.Background())
	defer cancelRestore()
	go sched.RestoreRunState(restoreCtx)

	handler := server.NewHandler(st, sched, activity, logger, logLevel)
	apiServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler.NewRouter(),
	}
	metricsServer := &http.Server{
		Addr:    cfg.MetricsListenAddr,
		Handler: metrics.Handler(),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("control API listening", "addr", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsListenAddr)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	cancelRestore()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("control API shutdown incomplete", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown incomplete", "error", err)
	}

	// In-flight reconciliation passes drain here.
	sched.Close()
	logger.Info("agent stopped")
	return nil
}

// bootstrapAdminToken stores the bcrypt hash of the configured admin token.
// An already stored hash is replaced only when a token is configured, so
// restarting without ADMIN_TOKEN keeps the existing credential.
func bootstrapAdminToken(st *store.SQLiteStore, token string, logger *slog.Logger) error {
	if token == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := st.Settings(ctx)
	if err != nil {
		return err
	}

	hash, err := store.HashToken(token)
	if err != nil {
		return err
	}

	settings.AdminTokenHash = hash
	if err := st.SaveSettings(ctx, settings); err != nil {
		return err
	}

	logger.Info("admin token configured")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
