package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLastFM()
	c.normalizeSpotify()
	c.normalizeCollector()
	c.normalizeRescue()
	c.normalizeTracker()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	if c.Paths.InboxDir, err = expandPath(strings.TrimSpace(c.Paths.InboxDir)); err != nil {
		return err
	}
	if c.Paths.TokenCache, err = expandPath(strings.TrimSpace(c.Paths.TokenCache)); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeLastFM() {
	c.LastFM.APIKey = strings.TrimSpace(c.LastFM.APIKey)
	c.LastFM.Username = strings.TrimSpace(c.LastFM.Username)
	c.LastFM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LastFM.BaseURL), "/")
	if c.LastFM.BaseURL == "" {
		c.LastFM.BaseURL = defaultLastFMBaseURL
	}
}

func (c *Config) normalizeSpotify() {
	c.Spotify.ClientID = strings.TrimSpace(c.Spotify.ClientID)
	c.Spotify.ClientSecret = strings.TrimSpace(c.Spotify.ClientSecret)
	c.Spotify.RedirectURI = strings.TrimSpace(c.Spotify.RedirectURI)
	c.Spotify.TargetPlaylist = strings.TrimSpace(c.Spotify.TargetPlaylist)
	c.Spotify.BaseURL = strings.TrimRight(strings.TrimSpace(c.Spotify.BaseURL), "/")
	if c.Spotify.BaseURL == "" {
		c.Spotify.BaseURL = defaultSpotifyBaseURL
	}
	c.Spotify.AccountsURL = strings.TrimRight(strings.TrimSpace(c.Spotify.AccountsURL), "/")
	if c.Spotify.AccountsURL == "" {
		c.Spotify.AccountsURL = defaultSpotifyAccountsURL
	}
}

func (c *Config) normalizeCollector() {
	if c.Collector.PollInterval <= 0 {
		c.Collector.PollInterval = defaultPollInterval
	}
	if c.Collector.LookbackBuffer < 0 {
		c.Collector.LookbackBuffer = defaultLookbackBuffer
	}
	if c.Collector.FetchLimit <= 0 {
		c.Collector.FetchLimit = defaultFetchLimit
	}
}

func (c *Config) normalizeRescue() {
	c.Rescue.WindowStart = strings.TrimSpace(c.Rescue.WindowStart)
	c.Rescue.WindowEnd = strings.TrimSpace(c.Rescue.WindowEnd)
	if c.Rescue.FetchLimit <= 0 {
		c.Rescue.FetchLimit = defaultRescueFetchLimit
	}
}

func (c *Config) normalizeTracker() {
	if c.Tracker.PollInterval <= 0 {
		c.Tracker.PollInterval = defaultTrackerPollInterval
	}
	if c.Tracker.SessionDurationHours <= 0 {
		c.Tracker.SessionDurationHours = defaultSessionHours
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
