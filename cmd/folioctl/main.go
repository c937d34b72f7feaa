// Command folioctl runs operator tasks against the devfolio database: schema
// migrations, demo data, username backfill, search reindexing and dev tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"devfolio/internal/config"
	"devfolio/internal/database"
	"devfolio/internal/middleware"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "folioctl",
	Short:         "Operator tooling for the devfolio API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		middleware.Logger = middleware.NewLogger(cfg.Env, os.Getenv("LOG_LEVEL"))
		appConfig = cfg
		return nil
	},
}

var appConfig *config.Config

// openDB connects with the loaded configuration. Commands that only need
// config, like token, never call it.
func openDB() (*gorm.DB, error) {
	db, err := database.Connect(appConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, backfillCmd, reindexCmd, tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
