// Command statuspage serves the status page API and its live update channel.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/algostatus/statuspage/internal/app"
	"github.com/algostatus/statuspage/internal/config"
	pgutil "github.com/algostatus/statuspage/internal/pkg/postgres"
	"github.com/algostatus/statuspage/internal/version"
	"github.com/algostatus/statuspage/migrations"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var configPath string
	var migrateOnly bool
	var showVersion bool

	flagSet := pflag.NewFlagSet("statuspage", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (environment variables override it)")
	flagSet.BoolVar(&migrateOnly, "migrate-only", false, "apply database migrations and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("statuspage %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildDate)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if migrateOnly {
		return pgutil.Migrate(migrations.FS, cfg.Database.URL)
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
