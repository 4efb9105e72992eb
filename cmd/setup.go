package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytmirror/ytmirror/internal/config"
	"github.com/ytmirror/ytmirror/internal/engine"
	"github.com/ytmirror/ytmirror/internal/notify"
	"github.com/ytmirror/ytmirror/internal/store"
	"github.com/ytmirror/ytmirror/internal/ytmusic"
	"github.com/ytmirror/ytmirror/pkg/lastfm"
)

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// databasePath resolves the SQLite path from config, creating the default
// data directory when needed.
func databasePath(cfg *config.Config) (string, error) {
	if cfg.Database != "" {
		return cfg.Database, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dataDir := filepath.Join(homeDir, ".local", "share", "ytmirror")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dataDir, "ytmirror.db"), nil
}

// buildPipeline wires the fetcher, submitter, store and health tracker into
// a ready-to-run engine.
func buildPipeline(cfg *config.Config, st *store.Store, logger zerolog.Logger) (*engine.Pipeline, error) {
	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" {
		return nil, fmt.Errorf("Last.fm API credentials not configured. Set lastfm.api_key and lastfm.api_secret")
	}

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:    cfg.LastFM.APIKey,
		APISecret: cfg.LastFM.APISecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lastfm client: %w", err)
	}

	fetcher := ytmusic.NewFetcher(ytmusic.FetcherConfig{URL: cfg.HistoryURL}, logger)
	submitter := engine.NewLastfmSubmitter(client, logger)
	dispatcher := &notify.LogDispatcher{Logger: logger}
	health := engine.NewHealthTracker(st, dispatcher, nil, logger)

	return engine.NewPipeline(fetcher, submitter, st, health, nil, logger), nil
}
