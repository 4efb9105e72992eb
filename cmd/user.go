package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytmirror/ytmirror/internal/config"
	"github.com/ytmirror/ytmirror/internal/store"
)

var (
	userEmail      string
	userCookie     string
	userSessionKey string
)

// userCmd groups account management subcommands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage mirrored accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account",
	Long: `Add an account to mirror. Requires the YouTube Music session cookie and
an authorized Last.fm session key for the account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st *store.Store) error {
			id, err := st.CreateUser(ctx, userEmail, userCookie, userSessionKey)
			if err != nil {
				return err
			}
			fmt.Printf("Added user %d (%s)\n", id, userEmail)
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st *store.Store) error {
			users, err := st.ListUsers(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				status := "active"
				if !u.Health.IsActive {
					status = "inactive"
				}
				last := "never"
				if !u.Health.LastSuccessfulScrobble.IsZero() {
					last = u.Health.LastSuccessfulScrobble.Format(time.RFC3339)
				}
				fmt.Printf("%d\t%s\t%s\tfailures: %d\tlast scrobble: %s\n",
					u.ID, u.Email, status, u.Health.ConsecutiveFailures, last)
			}
			return nil
		})
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id int64
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid user id: %s", args[0])
		}
		return withStore(func(ctx context.Context, st *store.Store) error {
			if err := st.SetActive(ctx, id, false); err != nil {
				return err
			}
			fmt.Printf("Deactivated user %d\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeactivateCmd)

	userAddCmd.Flags().StringVar(&userEmail, "email", "", "Notification email (required)")
	userAddCmd.Flags().StringVar(&userCookie, "cookie", "", "YouTube Music session cookie (required)")
	userAddCmd.Flags().StringVar(&userSessionKey, "session-key", "", "Last.fm session key (required)")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("cookie")
	_ = userAddCmd.MarkFlagRequired("session-key")
}

// withStore opens the configured database and runs fn against it.
func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	dbPath, err := databasePath(cfg)
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, st)
}
