package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytmirror/ytmirror/internal/config"
	"github.com/ytmirror/ytmirror/internal/daemon"
	"github.com/ytmirror/ytmirror/internal/store"
)

var (
	daemonLogFile  string
	daemonLogLevel string
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the mirroring daemon",
	Long: `Run the daemon that mirrors YouTube Music history to Last.fm for every
active user.

The daemon will:
- Sweep all active users on a fixed interval
- Fetch and parse each user's history page and scrobble new plays
- Track per-user failures and send auth notifications on a backoff schedule
- Prune track records older than the retention window
- Handle graceful shutdown on SIGINT/SIGTERM

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file instead.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(daemonLogFile, daemonLogLevel)
	logger.Info().Str("version", version).Msg("Starting ytmirror daemon")

	dbPath, err := databasePath(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	logger.Info().Str("database", dbPath).Msg("Using database")

	pipeline, err := buildPipeline(cfg, st, logger)
	if err != nil {
		return err
	}

	scheduler := daemon.New(daemon.Config{
		Interval:        time.Duration(cfg.PollInterval) * time.Minute,
		RunTimeout:      time.Duration(cfg.RunTimeout) * time.Second,
		Concurrency:     cfg.Concurrency,
		RetentionWindow: 24 * time.Hour,
	}, st, pipeline, logger)

	if err := scheduler.Run(); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	logger.Info().Msg("Daemon stopped")
	return nil
}
