package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akeren/raine-waitlist/config"
	"github.com/akeren/raine-waitlist/domain"
	"github.com/akeren/raine-waitlist/internal/log"
)

const shutdownGracePeriod = 30 * time.Second

func main() {
	logger := log.NewLoggerWithJSONOutput()
	os.Exit(run(logger, os.Args[1:]))
}

func run(logger *log.Logger, args []string) int {
	logger.Info("Raine waitlist server starting")

	appConfig, err := config.LoadApplicationConfiguration(logger, wantsAutoMigrate(args))
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err)
		return 1
	}
	defer appConfig.Cleanup()

	domain.SetupCoreDomain(appConfig)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server stopped", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
		logger.Info("Shutdown signal received; draining connections", "grace_period", shutdownGracePeriod.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("HTTP server shutdown error", "error", err)
		return 1
	}

	logger.Info("Graceful shutdown completed")
	return 0
}

// wantsAutoMigrate reports whether --auto-migrate (or -m) was passed.
func wantsAutoMigrate(args []string) bool {
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "--auto-migrate", "-m":
			return true
		}
	}
	return false
}
