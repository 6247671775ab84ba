package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Scrobble is a single play record from the listening history, as returned
// by the provider. PlayedAt is the provider's raw UTC timestamp string; it
// is empty for the "now playing" entry.
type Scrobble struct {
	Artist     string
	Title      string
	PlayedAt   string
	NowPlaying bool
}

// History defines the scrobble operations used by the collector.
type History interface {
	RecentTracks(ctx context.Context, limit int) ([]Scrobble, error)
	TopTags(ctx context.Context, artist string, limit int) ([]string, error)
}

// Client provides access to the Last.fm API.
type Client struct {
	apiKey     string
	username   string
	baseURL    string
	httpClient *http.Client
}

var _ History = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Last.fm client.
func New(apiKey, username, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("lastfm api key required")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("lastfm username required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("lastfm base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		username:   username,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type recentTracksResponse struct {
	RecentTracks struct {
		Track []struct {
			Artist struct {
				Name string `json:"#text"`
			} `json:"artist"`
			Name string `json:"name"`
			Date *struct {
				Text string `json:"#text"`
			} `json:"date"`
			Attr *struct {
				NowPlaying string `json:"nowplaying"`
			} `json:"@attr"`
		} `json:"track"`
	} `json:"recenttracks"`
}

type topTagsResponse struct {
	TopTags struct {
		Tag []struct {
			Name string `json:"name"`
		} `json:"tag"`
	} `json:"toptags"`
}

type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// RecentTracks fetches up to limit recent plays, newest first. The entry for
// a track still in progress has an empty PlayedAt and NowPlaying set.
func (c *Client) RecentTracks(ctx context.Context, limit int) ([]Scrobble, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	params := url.Values{}
	params.Set("method", "user.getrecenttracks")
	params.Set("user", c.username)
	params.Set("limit", strconv.Itoa(limit))

	var decoded recentTracksResponse
	if err := c.get(ctx, params, &decoded); err != nil {
		return nil, err
	}

	scrobbles := make([]Scrobble, 0, len(decoded.RecentTracks.Track))
	for _, track := range decoded.RecentTracks.Track {
		s := Scrobble{
			Artist: track.Artist.Name,
			Title:  track.Name,
		}
		if track.Date != nil {
			s.PlayedAt = track.Date.Text
		}
		if track.Attr != nil && track.Attr.NowPlaying == "true" {
			s.NowPlaying = true
		}
		scrobbles = append(scrobbles, s)
	}
	return scrobbles, nil
}

// TopTags returns the top tags for an artist, lower-cased, best ranked first.
func (c *Client) TopTags(ctx context.Context, artist string, limit int) ([]string, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return nil, errors.New("artist must not be empty")
	}
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Set("method", "artist.gettoptags")
	params.Set("artist", artist)

	var decoded topTagsResponse
	if err := c.get(ctx, params, &decoded); err != nil {
		return nil, err
	}

	tags := make([]string, 0, limit)
	for _, tag := range decoded.TopTags.Tag {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		tags = append(tags, name)
		if len(tags) == limit {
			break
		}
	}
	return tags, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return fmt.Errorf("parse lastfm url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build lastfm request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lastfm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lastfm returned status %d", resp.StatusCode)
	}

	// Last.fm reports some failures as a 200 with an error payload, so
	// decode into a buffer that can be inspected twice.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode lastfm response: %w", err)
	}
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Code != 0 {
		return fmt.Errorf("lastfm error %d: %s", apiErr.Code, apiErr.Message)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode lastfm response: %w", err)
	}
	return nil
}
