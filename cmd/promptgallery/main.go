package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eringen/promptgallery"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "seed":
		err = runSeed(len(os.Args) > 2 && os.Args[2] == "--force")
	case "version":
		fmt.Printf("promptgallery %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads .env (when present) and then the environment.
func loadConfig() (promptgallery.SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return promptgallery.SiteConfig{}, fmt.Errorf("load .env: %w", err)
	}
	return promptgallery.LoadConfig()
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := promptgallery.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	app := promptgallery.New(cfg, promptgallery.ViewFuncs{}, promptgallery.WithLogger(logger))
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Init(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func printUsage() {
	fmt.Println(`promptgallery - A prompt and blog gallery built with Go, Echo, and templ

Usage:
  promptgallery <command> [arguments]

Commands:
  serve           Start the HTTP server
  seed [--force]  Insert sample prompts (skipped when prompts exist unless --force)
  version         Print the promptgallery version
  help            Show this help message

Configuration is read from the environment and an optional .env file:
  ADMIN_PASSWORD, SESSION_SECRET   required
  STORE_DRIVER                     file (default), sqlite or pgx
  DATA_DIR, DATABASE_URL           store locations
  ADMIN_API_KEY                    enables /api/import/*
  R2_ACCOUNT_ID, R2_BUCKET_NAME,
  R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_PUBLIC_URL
                                   optional object storage for images`)
}
