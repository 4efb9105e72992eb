package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Sweep interval for the daemon (in minutes)
	PollInterval int

	// Max concurrent pipeline runs
	Concurrency int

	// Per-run time budget (in seconds)
	RunTimeout int

	// Path to the SQLite database (defaults to <data dir>/ytmirror.db)
	Database string

	// History page URL override (for testing against a fixture server)
	HistoryURL string

	// Last.fm API credentials shared by all users; session keys are
	// per-user and live in the database
	LastFM LastFMConfig
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey    string
	APISecret string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("poll_interval", 5)
	v.SetDefault("concurrency", 4)
	v.SetDefault("run_timeout", 120)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables
	v.SetEnvPrefix("YTMIRROR")
	v.AutomaticEnv()

	cfg := &Config{
		PollInterval: v.GetInt("poll_interval"),
		Concurrency:  v.GetInt("concurrency"),
		RunTimeout:   v.GetInt("run_timeout"),
		Database:     v.GetString("database"),
		HistoryURL:   v.GetString("history_url"),
		LastFM: LastFMConfig{
			APIKey:    v.GetString("lastfm.api_key"),
			APISecret: v.GetString("lastfm.api_secret"),
		},
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "ytmirror")
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	v.Set("poll_interval", c.PollInterval)
	v.Set("concurrency", c.Concurrency)
	v.Set("run_timeout", c.RunTimeout)
	v.Set("database", c.Database)
	v.Set("history_url", c.HistoryURL)
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.api_secret", c.LastFM.APISecret)

	return v.WriteConfigAs(configFile)
}
