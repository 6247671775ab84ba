package config

const (
	defaultDataDir             = "~/.local/share/lifelog/data"
	defaultLogDir              = "~/.local/share/lifelog/logs"
	defaultInboxDir            = "~/Downloads"
	defaultTokenCache          = "~/.cache/lifelog/spotify_token.json"
	defaultLastFMBaseURL       = "https://ws.audioscrobbler.com/2.0"
	defaultSpotifyBaseURL      = "https://api.spotify.com/v1"
	defaultSpotifyAccountsURL  = "https://accounts.spotify.com"
	defaultPollInterval        = 1200
	defaultLookbackBuffer      = 1200
	defaultFetchLimit          = 50
	defaultRescueFetchLimit    = 100
	defaultTimezoneOffsetHours = 8
	defaultTrackerPollInterval = 5
	defaultSessionHours        = 3
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			InboxDir:   defaultInboxDir,
			TokenCache: defaultTokenCache,
		},
		LastFM: LastFM{
			BaseURL: defaultLastFMBaseURL,
		},
		Spotify: Spotify{
			BaseURL:     defaultSpotifyBaseURL,
			AccountsURL: defaultSpotifyAccountsURL,
		},
		Collector: Collector{
			PollInterval:        defaultPollInterval,
			LookbackBuffer:      defaultLookbackBuffer,
			FetchLimit:          defaultFetchLimit,
			TimezoneOffsetHours: defaultTimezoneOffsetHours,
		},
		Rescue: Rescue{
			FetchLimit: defaultRescueFetchLimit,
		},
		Tracker: Tracker{
			PollInterval:         defaultTrackerPollInterval,
			SessionDurationHours: defaultSessionHours,
		},
		Notifications: Notifications{
			Desktop:        true,
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
