package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"mailbutler/mcp"
	"mailbutler/utils"
)

func main() {
	apiURL := flag.String("api", "http://localhost:4173", "base URL of the dashboard")
	user := flag.String("user", os.Getenv("MAILBUTLER_USER"), "dashboard basic auth username")
	flag.Parse()

	// stdout carries the MCP protocol
	utils.Log = utils.NewLoggerTo(os.Stderr, "warn")

	var opts []mcp.Option
	if *user != "" {
		// the password stays out of the process list
		opts = append(opts, mcp.WithBasicAuth(*user, os.Getenv("MAILBUTLER_PASSWORD")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mcp.NewServer(*apiURL, opts...).Run(ctx); err != nil && ctx.Err() == nil {
		utils.Log.Error("MCP server failed: %v", err)
		os.Exit(1)
	}
}
