// Package main is the entry point for the datashelf server binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"datashelf/internal/app"
	"datashelf/internal/config"
	internaldb "datashelf/internal/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "datashelf",
		Short:         "Datashelf dataset manager",
		Long:          "Multi-tenant manager for scientific datasets with grant-based access control.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (optional)")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newMigrateCmd(&configPath))
	rootCmd.AddCommand(newSweepCmd(&configPath))
	return rootCmd
}

func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return cfg, logger, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			// writeDB: single-connection pool for serialized writes.
			// readDB: 4-connection pool for concurrent reads.
			writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 4)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer writeDB.Close()
			defer readDB.Close()

			if err := internaldb.RunMigrations(writeDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			a, err := app.New(ctx, app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})
			if err != nil {
				return err
			}

			validator, err := app.NewValidator(ctx, cfg)
			if err != nil {
				return fmt.Errorf("auth validator: %w", err)
			}

			if cfg.SweepSchedule != "" {
				if err := a.Janitor.Start(cfg.SweepSchedule); err != nil {
					return fmt.Errorf("start integrity sweep: %w", err)
				}
				defer a.Janitor.Stop()
			}

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           a.Router(cfg, validator),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", "addr", cfg.ListenAddr, "env", cfg.Env)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 1)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer writeDB.Close()
			defer readDB.Close()

			if err := internaldb.RunMigrations(writeDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied", "db", cfg.DBPath)
			return nil
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove orphaned grants once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 1)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer writeDB.Close()
			defer readDB.Close()

			if err := internaldb.RunMigrations(writeDB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a, err := app.New(cmd.Context(), app.Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})
			if err != nil {
				return err
			}
			return a.Janitor.Sweep(cmd.Context())
		},
	}
}
