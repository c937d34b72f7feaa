package main

import (
	"fmt"
	"time"

	"devfolio/internal/auth"
	"devfolio/internal/repository"
	"devfolio/internal/search"
	"devfolio/internal/service"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-usernames",
	Short: "Assign usernames to accounts created before usernames existed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		accounts := service.NewAccountService(repository.NewAccountRepository(db), repository.NewProjectRepository(db))
		n, err := accounts.BackfillUsernames(cmd.Context())
		if err != nil {
			return fmt.Errorf("backfill stopped after %d accounts: %w", n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "assigned %d usernames\n", n)
		return nil
	},
}

var reindexAccount string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push an account's published projects to the search index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if appConfig.MeiliHost == "" {
			return fmt.Errorf("MEILISEARCH_HOST is not set")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)

		indexer := search.NewMeiliIndexer(appConfig.MeiliHost, appConfig.MeiliAPIKey, appConfig.MeiliIndex)
		projects := service.NewProjectService(
			repository.NewProjectRepository(db), repository.NewAccountRepository(db), indexer, nil, nil,
		)
		n, err := projects.Reindex(cmd.Context(), reindexAccount)
		if err != nil {
			return fmt.Errorf("reindex stopped after %d projects: %w", n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d projects\n", n)
		return nil
	},
}

var tokenOpts struct {
	sub   string
	email string
	name  string
	ttl   time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token signed with JWT_SECRET for local testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if appConfig.IsProduction() {
			return fmt.Errorf("refusing to mint tokens in %q", appConfig.Env)
		}
		verifier := auth.NewVerifier(appConfig.JWTSecret, appConfig.JWTIssuer, appConfig.JWTAudience)
		token, err := verifier.Issue(auth.Identity{
			ID:    tokenOpts.sub,
			Email: tokenOpts.email,
			Name:  tokenOpts.name,
		}, tokenOpts.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	reindexCmd.Flags().StringVar(&reindexAccount, "account", "", "account ID whose projects are reindexed")
	_ = reindexCmd.MarkFlagRequired("account")

	f := tokenCmd.Flags()
	f.StringVar(&tokenOpts.sub, "sub", "", "subject (account ID)")
	f.StringVar(&tokenOpts.email, "email", "", "email claim")
	f.StringVar(&tokenOpts.name, "name", "", "name claim")
	f.DurationVar(&tokenOpts.ttl, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")
}
