package main

import (
	"fmt"
	"strconv"

	"devfolio/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect and apply schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations according to DB_SCHEMA_MODE",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := database.Migrate(cmd.Context(), db, appConfig); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down <version>",
	Short: "Roll back one applied SQL migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		migrations, err := database.LoadMigrations()
		if err != nil {
			return err
		}
		if err := database.RollbackMigration(cmd.Context(), db, migrations, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", version)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema policy and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		status, err := database.GetSchemaStatus(cmd.Context(), db, appConfig)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
			status.Mode, appConfig.Env, status.WillRunSQL, status.WillRunAutoMigrate,
			len(status.AppliedVersions), len(status.Pending))
		for _, m := range status.Pending {
			fmt.Fprintf(out, "pending: %06d_%s\n", m.Version, m.Name)
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}
