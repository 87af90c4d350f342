package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/server"
	"github.com/GriffinCanCode/framebridge/internal/logging"
	"github.com/GriffinCanCode/framebridge/internal/manifest"
)

func main() {
	cfg := config.LoadOrDefault()

	// Flags override environment
	port := flag.String("port", cfg.Server.Port, "Server port")
	host := flag.String("host", cfg.Server.Host, "Listen address")
	origin := flag.String("origin", cfg.Server.Origin, "Origin guests address this host by (default http://localhost:<port>)")
	manifestPath := flag.String("manifest", cfg.Server.Manifest, "Frame manifest (.yaml or .toml)")
	unknown := flag.String("unknown", cfg.Bridge.UnknownPolicy, "Unknown effect policy: report, drop or strict")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Server.Origin = *origin
	cfg.Server.Manifest = *manifestPath
	cfg.Bridge.UnknownPolicy = *unknown
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Service:     "framebridge-host",
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	m, err := manifest.Load(cfg.Server.Manifest)
	if err != nil {
		logger.Fatal("Failed to load manifest", zap.String("path", cfg.Server.Manifest), zap.Error(err))
	}

	srv, err := server.New(cfg, m, logger, monitoring.NewMetrics())
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.Stringer("signal", sig))
		cancel()
		if err := <-errChan; err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
			srv.Close()
			os.Exit(1)
		}
	}
	srv.Close()
}
