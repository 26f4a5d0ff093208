// Package main is the operator HTTP API for the outreach sequencer.
//
// It exposes the same runner the scheduled Lambda uses:
//
//	POST /v1/outreach/run             one production run
//	POST /v1/outreach/test            one test message
//	GET  /v1/outreach/sequences/{id}  sequence state
//	GET  /health                      database probe, no auth
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach/internal/api/handlers"
	"outreach/internal/app"
	"outreach/internal/config"
	"outreach/internal/core"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := app.NewLogger(cfg.LogLevel)
	logger.Info("outreach API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring sequencer: %w", err)
	}
	defer a.Close()

	srv, err := buildServer(cfg, logger, a.Runner, a.Sequences, core.ProbeFunc{
		ProbeName: "database",
		Fn:        a.Pool.Ping,
	})
	if err != nil {
		return err
	}
	return serve(srv, cfg, logger)
}

// buildServer mounts the outreach handlers behind the core chassis.
func buildServer(cfg *config.Config, logger *slog.Logger, runner handlers.OutreachRunner, seqs handlers.SequenceReader, probes ...core.HealthProbe) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = probes

	outreach := handlers.NewOutreachHandler(runner, seqs, logger.With("component", "api"))
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, outreach.RegisterRoutes)

	srv.MountRoutes()
	return srv, nil
}

func serve(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// A run can take minutes.
		WriteTimeout: srv.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
