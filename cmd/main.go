package main

import (
	"os"
	"os/signal"
	"syscall"

	"diabetes-risk/internal/bootstrap"
)

func main() {
	// Create and initialize dependency container
	container := bootstrap.NewContainer()
	container.MustInit()

	// Start all components
	if err := container.Start(); err != nil {
		container.Log.Fatalf("failed to start: %v", err)
	}

	// Wait for shutdown signal or fatal server error
	waitForShutdown(container)

	container.Shutdown()
}

// waitForShutdown blocks until SIGINT/SIGTERM or until the container cancels itself
func waitForShutdown(c *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		c.Log.Infow("Shutdown signal received", "signal", sig.String())
	case <-c.Context.Done():
		c.Log.Warn("Application context cancelled")
	}
}
