package main

import (
	"fmt"

	"devfolio/internal/seed"

	"github.com/spf13/cobra"
)

var seedOpts struct {
	accounts int
	projects int
	seed     int64
	clean    bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo portfolios",
	Long: `Create demo accounts with projects, likes, comments and views.

Seeded accounts carry the "` + seed.IDPrefix + `" ID prefix so --clean removes
only data created by earlier runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if appConfig.IsProduction() {
			return fmt.Errorf("refusing to seed in %q", appConfig.Env)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		s := seed.NewSeeder(db)
		if seedOpts.clean {
			if err := s.ClearAll(cmd.Context()); err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
		}

		sum, err := s.Run(cmd.Context(), seed.Options{
			Accounts:           seedOpts.accounts,
			ProjectsPerAccount: seedOpts.projects,
			Seed:               seedOpts.seed,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d accounts, %d projects, %d likes, %d comments, %d views\n",
			sum.Accounts, sum.Projects, sum.Likes, sum.Comments, sum.Views)
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.accounts, "accounts", 10, "number of accounts to create")
	f.IntVar(&seedOpts.projects, "projects", 3, "projects per account")
	f.Int64Var(&seedOpts.seed, "seed", 0, "random seed, 0 for a random run")
	f.BoolVar(&seedOpts.clean, "clean", false, "remove previously seeded data first")
}
