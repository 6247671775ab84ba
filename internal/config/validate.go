package config

import (
	"errors"
	"fmt"
	"time"
)

// windowTimeLayout is the layout for rescue window bounds. It matches the
// dataset timestamp format so the operator can copy bounds straight from a
// dataset row.
const windowTimeLayout = "2006-01-02 15:04:05"

// Validate ensures the configuration is usable. Provider credentials are
// checked separately by RequireMusicProviders so local-only commands (phone
// import, window tracking) run without API keys.
func (c *Config) Validate() error {
	if err := c.validateCollector(); err != nil {
		return err
	}
	if err := c.validateRescue(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireMusicProviders verifies the credentials needed by the music
// collection commands.
func (c *Config) RequireMusicProviders() error {
	if c.LastFM.APIKey == "" {
		return requiredKeyError("lastfm.api_key")
	}
	if c.LastFM.Username == "" {
		return requiredKeyError("lastfm.username")
	}
	if c.Spotify.ClientID == "" {
		return requiredKeyError("spotify.client_id")
	}
	if c.Spotify.ClientSecret == "" {
		return requiredKeyError("spotify.client_secret")
	}
	return nil
}

func requiredKeyError(key string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/lifelog/config.toml"
	}
	return fmt.Errorf("%s is required. Edit %s (create with 'lifelog config init')", key, defaultPath)
}

func (c *Config) validateCollector() error {
	if c.Collector.TimezoneOffsetHours < -14 || c.Collector.TimezoneOffsetHours > 14 {
		return errors.New("collector.timezone_offset_hours must be between -14 and 14")
	}
	if err := ensurePositiveMap(map[string]int{
		"collector.poll_interval": c.Collector.PollInterval,
		"collector.fetch_limit":   c.Collector.FetchLimit,
	}); err != nil {
		return err
	}
	if c.Collector.LookbackBuffer < 0 {
		return errors.New("collector.lookback_buffer must not be negative")
	}
	return nil
}

func (c *Config) validateRescue() error {
	start, err := parseWindowBound("rescue.window_start", c.Rescue.WindowStart)
	if err != nil {
		return err
	}
	end, err := parseWindowBound("rescue.window_end", c.Rescue.WindowEnd)
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return errors.New("rescue.window_end must not be before rescue.window_start")
	}
	return nil
}

func parseWindowBound(key, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(windowTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must use the format %q: %w", key, windowTimeLayout, err)
	}
	return parsed, nil
}

func (c *Config) validateTracker() error {
	return ensurePositiveMap(map[string]int{
		"tracker.poll_interval":          c.Tracker.PollInterval,
		"tracker.session_duration_hours": c.Tracker.SessionDurationHours,
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be greater than zero", key)
		}
	}
	return nil
}

// RescueWindow returns the parsed backfill bounds. Both must be configured.
func (c *Config) RescueWindow() (time.Time, time.Time, error) {
	if c.Rescue.WindowStart == "" || c.Rescue.WindowEnd == "" {
		return time.Time{}, time.Time{}, errors.New("rescue.window_start and rescue.window_end must be set")
	}
	start, err := parseWindowBound("rescue.window_start", c.Rescue.WindowStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseWindowBound("rescue.window_end", c.Rescue.WindowEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("rescue.window_end must not be before rescue.window_start")
	}
	return start, end, nil
}
