package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/di"
	"github.com/mikey/email-risk/internal/ports"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

type resources struct {
	dig.In

	Logger     *zap.Logger
	Gateway    ports.Gateway
	Limiter    core.RateLimiter
	Cache      core.CacheRepository
	Collectors core.Collectors
	Events     core.SecurityEventSink
}

// run is the main application function that gets all dependencies injected
func run(r resources) error {
	logger := r.Logger
	defer logger.Sync()

	// Start the gateway
	if err := r.Gateway.Start(); err != nil {
		logger.Error("Failed to start gateway", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the gateway
	if err := r.Gateway.Stop(); err != nil {
		logger.Error("Failed to stop gateway", zap.Error(err))
	}

	// Flush queued security events
	if stopper, ok := r.Events.(interface{ Stop() error }); ok {
		if err := stopper.Stop(); err != nil {
			logger.Error("Failed to stop audit sink", zap.Error(err))
		}
	}

	// Stop the limiter and cache if needed
	for _, component := range []interface{}{r.Limiter, r.Cache} {
		if stopper, ok := component.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}

	// Close the ASN database if one was opened
	if closer, ok := r.Collectors.NetworkOwner.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close ASN database", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
