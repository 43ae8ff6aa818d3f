package main

import (
	"fmt"
	"os"

	"github.com/jonathan/postdesk/internal/config"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Create the users, posts and jobs tables and their indexes. Safe to run repeatedly.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// migrationDatabaseURL resolves DATABASE_URL without requiring the rest of
// the server configuration.
func migrationDatabaseURL(path string, lookup config.LookupFunc) (string, error) {
	if url, ok := lookup("DATABASE_URL"); ok && url != "" {
		return url, nil
	}
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return "", err
		}
		if cfg.DatabaseURL != "" {
			return cfg.DatabaseURL, nil
		}
	}
	return "", fmt.Errorf("DATABASE_URL environment variable is required")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	databaseURL, err := migrationDatabaseURL(configPath, os.LookupEnv)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.Connect(cmd.Context(), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	logger.Info("schema applied")
	return nil
}
