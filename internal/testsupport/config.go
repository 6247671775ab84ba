package testsupport

import (
	"path/filepath"
	"testing"

	"lifelog/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paths.TokenCache = filepath.Join(base, ".cache")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMusicProviders fills in credential fields so RequireMusicProviders
// passes in tests.
func WithMusicProviders() ConfigOption {
	return func(cfg *config.Config) {
		cfg.LastFM.APIKey = "test-key"
		cfg.LastFM.Username = "tester"
		cfg.Spotify.ClientID = "test-client"
		cfg.Spotify.ClientSecret = "test-secret"
	}
}

// WithRescueWindow sets the backfill bounds on the test config.
func WithRescueWindow(start, end string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Rescue.WindowStart = start
		cfg.Rescue.WindowEnd = end
	}
}
