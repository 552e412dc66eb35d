package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-echo-server/internal/api"
	"github.com/sirosfoundation/go-echo-server/internal/server"
	"github.com/sirosfoundation/go-echo-server/pkg/config"
	"github.com/sirosfoundation/go-echo-server/pkg/logging"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting echo server",
		zap.String("service", api.ServiceName),
		zap.String("version", api.Version),
		zap.String("build_time", buildTime),
	)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	serveErr := srv.WaitForSignal(context.Background())
	if serveErr != nil {
		logger.Error("Server error", zap.Error(serveErr))
	}

	logger.Info("Shutting down server...")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	if serveErr != nil {
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited")
}
