package main

import (
	"callgate/backend/internal/models"
	"callgate/backend/internal/storage"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *adminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and call_sessions tables",
		Args:  cobra.NoArgs,
		RunE: withStore(opts, func(cmd *cobra.Command, _ []string) error {
			if err := storage.Migrate(opts.store.DB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations complete.")
			return nil
		}),
	}
}

func newUsersCmd(opts *adminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: withStore(opts, func(cmd *cobra.Command, _ []string) error {
			users, err := opts.store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		}),
	}
}

func newSessionsCmd(opts *adminOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List call sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: withStore(opts, func(cmd *cobra.Command, _ []string) error {
			st := models.CallStatus(status)
			if st != "" && st != models.CallStatusActive && st != models.CallStatusEnded {
				return fmt.Errorf("unknown status %q (want active or ended)", status)
			}

			sessions, err := opts.store.ListSessions(cmd.Context(), st)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROOM\tCALLER\tCALLEE\tSTATUS\tRECORDING\tSTARTED\tENDED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
					s.RoomName, username(s.Caller), username(s.Callee), s.Status,
					s.RecordingEnabled, s.StartedAt.Format(time.RFC3339), formatTime(s.EndedAt))
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active or ended)")
	return cmd
}

func newEndCallCmd(opts *adminOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "end-call <room>",
		Short: "Mark a room's active call session as ended",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(opts, func(cmd *cobra.Command, args []string) error {
			n, err := opts.store.EndSession(cmd.Context(), args[0], time.Now())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No active session for room %s.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Call in room %s ended.\n", args[0])
			return nil
		}),
	}
}

func username(u *models.User) string {
	if u == nil {
		return "-"
	}
	return u.Username
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
