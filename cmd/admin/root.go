package main

import (
	"callgate/backend/internal/config"
	"callgate/backend/internal/storage"

	"github.com/spf13/cobra"
)

type adminOptions struct {
	databaseURL string
	store       *storage.Service
}

func newRootCmd() *cobra.Command {
	opts := &adminOptions{}

	root := &cobra.Command{
		Use:   "admin",
		Short: "Operator tools for the call backend",
		Long: `admin inspects and repairs the call backend's database:
run migrations, list users and call sessions, or force-end a call.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "",
		"database URL (defaults to DATABASE_URL; use sqlite://<path> for SQLite)")

	root.AddCommand(
		newMigrateCmd(opts),
		newUsersCmd(opts),
		newSessionsCmd(opts),
		newEndCallCmd(opts),
	)
	return root
}

// withStore opens the database before running fn.
func withStore(opts *adminOptions, fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if opts.databaseURL == "" {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.databaseURL = cfg.DatabaseURL
		}

		db, err := storage.Open(opts.databaseURL)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		opts.store = storage.NewStorageService(db)
		return fn(cmd, args)
	}
}
