package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailbutler/config"
	"mailbutler/server"
	"mailbutler/storage"
	"mailbutler/utils"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer utils.Log.Sync()

	utils.Log.Info("Initializing Mailbutler...")

	// Load configuration
	cfg, err := config.LoadConfig("config.toml")
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	utils.Log.SetLevel(cfg.Log.Level)

	mailbox, closeMailbox, err := storage.InitMailbox(cfg.Storage.SnapshotPath, cfg.Storage.Seed)
	if err != nil {
		utils.Log.Error("Failed to initialize mailbox: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeMailbox(); err != nil {
			utils.Log.Error("Failed to close snapshot store: %v", err)
		}
	}()

	app := server.New(cfg, mailbox)

	// Start server
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		utils.Log.Info("Starting server on %s (public URL %s)", addr, cfg.Server.BaseURL)
		if cfg.SSL.Enabled {
			errCh <- app.ListenTLS(addr, cfg.SSL.CertFile, cfg.SSL.KeyFile)
			return
		}
		errCh <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, os.ErrClosed) {
			utils.Log.Error("Error starting server: %v", err)
		}
	case sig := <-quit:
		utils.Log.Info("Received %s, shutting down...", sig)
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			utils.Log.Error("Server forced to shutdown: %v", err)
		}
	}

	utils.Log.Info("Server exited")
}
