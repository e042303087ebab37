package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/config"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inventory-sidecar/internal/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", os.Getenv(config.EnvPrefix+"_CONFIG"), "Path to YAML config file")
	backend := flag.String("backend", "", "Inventory backend address (overrides config)")
	metricsAddr := flag.String("metrics", "", "Metrics listen address (overrides config)")
	exporter := flag.String("exporter", "", "Trace exporter: log, otlp or none (overrides config)")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *backend != "" {
		cfg.Backend.Addr = *backend
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *exporter != "" {
		cfg.Tracing.Exporter = *exporter
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	if err := srv.Run(context.Background()); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
