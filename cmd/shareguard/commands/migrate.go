package commands

import (
	"context"
	"fmt"

	"github.com/shareguard/shareguard/internal/config"
	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/controlplane/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the control plane database.

This command applies pending database migrations (snapshots, change
history, issues, score history, subscription audit) to the configured
control plane database (SQLite or PostgreSQL). It is required after
upgrading ShareGuard when schema changes have been made.

Examples:
  # Run migrations with default config
  shareguard migrate

  # Run migrations with custom config
  shareguard migrate --config /etc/shareguard/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("running database migrations", "driver", cfg.Database.Driver)

	dbConfig := toStoreConfig(cfg.Database)
	cpStore, err := store.New(&dbConfig)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = cpStore.Close() }()

	if err := cpStore.Healthcheck(context.Background()); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database driver: %s)\n", cfg.Database.Driver)
	return nil
}

// toStoreConfig bridges internal/config.DatabaseConfig onto
// pkg/controlplane/store.Config, the two packages' deliberately decoupled
// but structurally matching database config shapes.
func toStoreConfig(cfg config.DatabaseConfig) store.Config {
	dbType := store.DatabaseTypeSQLite
	if cfg.Driver == "postgres" {
		dbType = store.DatabaseTypePostgres
	}
	return store.Config{
		Type:         dbType,
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxOpenConns,
	}
}
