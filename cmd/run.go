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
	runUserID   int64
	runLogLevel string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once for a single user",
	Long: `Run one mirroring pass for a user: fetch the history page, reconcile the
today-list against the persisted records and submit any new scrobbles.

Useful for debugging a single account without starting the daemon.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int64Var(&runUserID, "user", 0, "User id to run (required)")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	_ = runCmd.MarkFlagRequired("user")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger("", runLogLevel)

	dbPath, err := databasePath(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	pipeline, err := buildPipeline(cfg, st, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.RunTimeout)*time.Second)
	defer cancel()

	user, err := st.GetUser(ctx, runUserID)
	if err != nil {
		return err
	}

	outcome, err := pipeline.RunForUser(ctx, user)
	if err != nil {
		return fmt.Errorf("run failed (%s): %w", outcome.FailureType, err)
	}

	fmt.Printf("Scrobbled: %d, skipped: %d, rejected: %d, failed: %d\n",
		outcome.Scrobbled, outcome.Skipped, outcome.Rejected, outcome.Failed)
	if outcome.Initialized {
		fmt.Println("First run: recorded positions, nothing scrobbled")
	}
	if len(outcome.UnmatchedMarkers) > 0 {
		fmt.Printf("Unrecognized recency markers: %v\n", outcome.UnmatchedMarkers)
	}
	return nil
}
