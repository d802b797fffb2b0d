package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/e7canasta/motion-sensor/internal/config"
	"github.com/e7canasta/motion-sensor/internal/core"
)

const (
	defaultConfigPath = "config/motion.yaml"
	healthPort        = "8080"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	initLogging(*debug)

	if err := run(*configPath); err != nil {
		slog.Error("motion sensor failed", "error", err)
		os.Exit(1)
	}
	slog.Info("motion sensor stopped")
}

func initLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}

func run(configPath string) error {
	slog.Info("starting motion sensor", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	daemon, err := core.NewDaemon(cfg)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	if err := daemon.StartHealthServer(healthPort); err != nil {
		return fmt.Errorf("start health endpoint: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() {
		runDone <- daemon.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Block until something ends the service: an operator signal, the
	// MQTT shutdown command, end of replay input, or a pipeline error.
	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case runErr = <-runDone:
		if runErr != nil {
			slog.Error("pipeline failed", "error", runErr)
		} else {
			slog.Info("pipeline finished")
		}
	}

	shutdownCtx, release := context.WithTimeout(context.Background(), daemon.ShutdownTimeout())
	defer release()
	if err := daemon.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	return runErr
}
