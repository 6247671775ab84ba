package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared by every collector.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	InboxDir   string `toml:"inbox_dir"`
	TokenCache string `toml:"token_cache"`
}

// LastFM contains configuration for the scrobble-history provider.
type LastFM struct {
	APIKey   string `toml:"api_key"`
	Username string `toml:"username"`
	BaseURL  string `toml:"base_url"`
}

// Spotify contains configuration for the search/playback provider.
type Spotify struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	RedirectURI    string `toml:"redirect_uri"`
	BaseURL        string `toml:"base_url"`
	AccountsURL    string `toml:"accounts_url"`
	TargetPlaylist string `toml:"target_playlist"`
}

// Collector contains configuration for the rolling music collection loop.
type Collector struct {
	PollInterval        int `toml:"poll_interval"`
	LookbackBuffer      int `toml:"lookback_buffer"`
	FetchLimit          int `toml:"fetch_limit"`
	TimezoneOffsetHours int `toml:"timezone_offset_hours"`
}

// Rescue contains the fixed backfill window for one-shot recovery runs.
// Both bounds use the dataset timestamp format (2006-01-02 15:04:05) in
// operator-local time.
type Rescue struct {
	WindowStart string `toml:"window_start"`
	WindowEnd   string `toml:"window_end"`
	FetchLimit  int    `toml:"fetch_limit"`
}

// Tracker contains configuration for the foreground-window sampler.
type Tracker struct {
	PollInterval         int `toml:"poll_interval"`
	SessionDurationHours int `toml:"session_duration_hours"`
}

// Notifications contains configuration for completion and error notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	Desktop        bool   `toml:"desktop"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for lifelog.
//
// Configuration sections by subsystem:
//   - Paths: data, log, inbox, and token cache locations
//   - LastFM: scrobble history and tag fallback provider
//   - Spotify: track search, artist details, and playback control
//   - Collector: rolling music collection loop timing and window buffer
//   - Rescue: fixed backfill window for one-shot recovery
//   - Tracker: foreground-window sampler timing and session cap
//   - Notifications: ntfy topic and desktop notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LastFM        LastFM        `toml:"lastfm"`
	Spotify       Spotify       `toml:"spotify"`
	Collector     Collector     `toml:"collector"`
	Rescue        Rescue        `toml:"rescue"`
	Tracker       Tracker       `toml:"tracker"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lifelog/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lifelog.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for collector operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(strings.TrimSpace(c.Paths.TokenCache)); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create token cache directory %q: %w", dir, err)
		}
	}
	return nil
}

// MusicDataPath returns the music listening dataset location.
func (c *Config) MusicDataPath() string {
	return filepath.Join(c.Paths.DataDir, "music_data.csv")
}

// ActivityLogPath returns the foreground-window sample log location.
func (c *Config) ActivityLogPath() string {
	return filepath.Join(c.Paths.DataDir, "mac_activity_log.csv")
}

// PhoneDataPath returns the cleaned phone-usage dataset location.
func (c *Config) PhoneDataPath() string {
	return filepath.Join(c.Paths.DataDir, "phone_data_clean.csv")
}

// JournalPath returns the run journal database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.LogDir, "journal.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
