package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/divoxx/echosrv/internal/logger"
	"github.com/divoxx/echosrv/pkg/config"
	"github.com/divoxx/echosrv/pkg/server"
	"github.com/divoxx/echosrv/pkg/transport"
)

func main() {
	// Configuration flags
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/echosrv/config.yaml)")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	initConfig := flag.Bool("init-config", false, "Write a default config file and exit")
	forceInit := flag.Bool("force", false, "Overwrite an existing config file with -init-config")

	flag.Parse()

	if *initConfig {
		path, err := config.InitConfig(*forceInit)
		if err != nil {
			log.Fatalf("Failed to initialize config: %v", err)
		}
		fmt.Printf("Config file written to %s\n", path)
		return
	}

	// Load configuration from file, environment, and defaults
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flag overrides config file and environment
	if *logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(*logLevel)
	}

	// Configure logger
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("echosrv - Multi-Transport Echo Server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	// Build one adapter per enabled transport
	engine := server.NewEngine(cfg.Server.ShutdownTimeout)

	if cfg.Adapters.TCP.Enabled {
		srv := server.NewStream(transport.TCP{}, cfg.Adapters.TCP.ServerConfig(false), nil)
		if err := engine.AddAdapter(srv); err != nil {
			log.Fatalf("Failed to register TCP adapter: %v", err)
		}
		logger.Info("TCP adapter enabled on %s", cfg.Adapters.TCP.Address)
	}
	if cfg.Adapters.UDP.Enabled {
		srv := server.NewDatagram(transport.UDP{}, cfg.Adapters.UDP.ServerConfig(false), nil)
		if err := engine.AddAdapter(srv); err != nil {
			log.Fatalf("Failed to register UDP adapter: %v", err)
		}
		logger.Info("UDP adapter enabled on %s", cfg.Adapters.UDP.Address)
	}
	if cfg.Adapters.UnixStream.Enabled {
		srv := server.NewStream(transport.UnixStream{}, cfg.Adapters.UnixStream.ServerConfig(true), nil)
		if err := engine.AddAdapter(srv); err != nil {
			log.Fatalf("Failed to register unix stream adapter: %v", err)
		}
		logger.Info("Unix stream adapter enabled on %s", cfg.Adapters.UnixStream.Path)
	}
	if cfg.Adapters.UnixDatagram.Enabled {
		srv := server.NewDatagram(transport.UnixDatagram{}, cfg.Adapters.UnixDatagram.ServerConfig(true), nil)
		if err := engine.AddAdapter(srv); err != nil {
			log.Fatalf("Failed to register unix datagram adapter: %v", err)
		}
		logger.Info("Unix datagram adapter enabled on %s", cfg.Adapters.UnixDatagram.Path)
	}

	logger.Info("Shutdown timeout: %v", cfg.Server.ShutdownTimeout)

	// Start engine in background
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Serve(ctx)
	}()

	// Wait for interrupt signal or engine error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel() // Cancel context to initiate shutdown

		// Wait for engine to shut down gracefully
		if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-engineDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
