package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const tokenLeeway = 30 * time.Second

// ErrPlaybackUnauthorized is returned when playback control is requested but
// only an app-level (client credentials) token is available. Playback needs
// a user-scoped token obtained once with `lifelog spotify-auth`.
var ErrPlaybackUnauthorized = errors.New("spotify playback requires a user authorization; no refresh token cached")

// TrackMatch is the first search hit for a track query.
type TrackMatch struct {
	ID            string
	Name          string
	PrimaryArtist string
}

// ArtistDetails carries the enrichment fields for an artist.
type ArtistDetails struct {
	Genres     []string
	Popularity int
}

// Device is an available playback target.
type Device struct {
	ID     string
	Name   string
	Active bool
}

// Catalog defines the search and artist operations used by enrichment.
type Catalog interface {
	SearchTrack(ctx context.Context, title, artist string) (*TrackMatch, error)
	Artist(ctx context.Context, id string) (*ArtistDetails, error)
}

// Player defines the playback operations used by the autoplay helper.
type Player interface {
	Devices(ctx context.Context) ([]Device, error)
	StartPlayback(ctx context.Context, deviceID, contextURI string) error
}

// Client provides access to the Spotify Web API.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	baseURL      string
	accountsURL  string
	httpClient   *http.Client
	store        TokenStore
	now          func() time.Time

	mu    sync.Mutex
	token tokenState
}

var (
	_ Catalog = (*Client)(nil)
	_ Player  = (*Client)(nil)
)

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

// WithTokenStore injects a custom persistence layer.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Spotify client persisting auth state at tokenCachePath.
func New(clientID, clientSecret, redirectURI, baseURL, accountsURL, tokenCachePath string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("spotify client id required")
	}
	clientSecret = strings.TrimSpace(clientSecret)
	if clientSecret == "" {
		return nil, errors.New("spotify client secret required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("spotify base url required")
	}
	accountsURL = strings.TrimSpace(accountsURL)
	if accountsURL == "" {
		return nil, errors.New("spotify accounts url required")
	}

	client := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  strings.TrimSpace(redirectURI),
		baseURL:      strings.TrimRight(baseURL, "/"),
		accountsURL:  strings.TrimRight(accountsURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		store:        NewFileTokenStore(tokenCachePath),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}

	state, err := client.store.Load()
	if err != nil {
		return nil, err
	}
	client.token = state
	return client, nil
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"items"`
	} `json:"tracks"`
}

type artistResponse struct {
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

type devicesResponse struct {
	Devices []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsActive bool   `json:"is_active"`
	} `json:"devices"`
}

// SearchTrack looks up the best track match for a title/artist pair. A nil
// result with a nil error means the catalog has no match.
func (c *Client) SearchTrack(ctx context.Context, title, artist string) (*TrackMatch, error) {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	if title == "" || artist == "" {
		return nil, errors.New("title and artist must not be empty")
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("track:%s artist:%s", title, artist))
	params.Set("type", "track")
	params.Set("limit", "1")

	var decoded searchResponse
	if err := c.apiGet(ctx, "/search", params, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Tracks.Items) == 0 {
		return nil, nil
	}

	item := decoded.Tracks.Items[0]
	match := &TrackMatch{ID: item.ID, Name: item.Name}
	if len(item.Artists) > 0 {
		match.PrimaryArtist = item.Artists[0].ID
	}
	return match, nil
}

// Artist fetches genre and popularity details for an artist id.
func (c *Client) Artist(ctx context.Context, id string) (*ArtistDetails, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("artist id must not be empty")
	}

	var decoded artistResponse
	if err := c.apiGet(ctx, "/artists/"+url.PathEscape(id), nil, &decoded); err != nil {
		return nil, err
	}
	return &ArtistDetails{Genres: decoded.Genres, Popularity: decoded.Popularity}, nil
}

// Devices lists the playback devices visible to the authorized user.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	if err := c.requireUserAuth(); err != nil {
		return nil, err
	}

	var decoded devicesResponse
	if err := c.apiGet(ctx, "/me/player/devices", nil, &decoded); err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(decoded.Devices))
	for _, d := range decoded.Devices {
		devices = append(devices, Device{ID: d.ID, Name: d.Name, Active: d.IsActive})
	}
	return devices, nil
}

// StartPlayback starts the given context (playlist, album) on a device.
func (c *Client) StartPlayback(ctx context.Context, deviceID, contextURI string) error {
	if err := c.requireUserAuth(); err != nil {
		return err
	}
	contextURI = strings.TrimSpace(contextURI)
	if contextURI == "" {
		return errors.New("playback context must not be empty")
	}

	endpoint := c.baseURL + "/me/player/play"
	if deviceID = strings.TrimSpace(deviceID); deviceID != "" {
		endpoint += "?device_id=" + url.QueryEscape(deviceID)
	}

	body := strings.NewReader(fmt.Sprintf(`{"context_uri":%q}`, contextURI))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return fmt.Errorf("build playback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doAuthorized(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return responseError("start playback", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ExchangeAuthorizationCode completes the one-time user authorization dance
// and persists the resulting refresh token for unattended use.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("authorization code must not be empty")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	return c.requestToken(ctx, form)
}

// AuthorizationURL returns the URL the operator opens in a browser to grant
// playback scopes.
func (c *Client) AuthorizationURL() string {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", c.redirectURI)
	params.Set("scope", "user-read-private user-read-playback-state user-modify-playback-state")
	return c.accountsURL + "/authorize?" + params.Encode()
}

func (c *Client) requireUserAuth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.RefreshToken == "" {
		return ErrPlaybackUnauthorized
	}
	return nil
}

func (c *Client) apiGet(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build spotify request: %w", err)
	}

	resp, err := c.doAuthorized(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError("spotify request", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode spotify response: %w", err)
	}
	return nil
}

func (c *Client) doAuthorized(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify request: %w", err)
	}
	return resp, nil
}

// accessToken returns a valid token, refreshing or re-granting as needed.
// With a cached refresh token the user grant is renewed; otherwise an
// app-level client-credentials token is issued, which is enough for catalog
// lookups.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	state := c.token
	c.mu.Unlock()

	if state.valid(c.now()) {
		return state.AccessToken, nil
	}

	form := url.Values{}
	if state.RefreshToken != "" {
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", state.RefreshToken)
	} else {
		form.Set("grant_type", "client_credentials")
	}
	if err := c.requestToken(ctx, form); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token.AccessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (c *Client) requestToken(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError("spotify token request", resp)
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	c.mu.Lock()
	if decoded.RefreshToken != "" {
		c.token.RefreshToken = decoded.RefreshToken
	}
	c.token.AccessToken = decoded.AccessToken
	c.token.ExpiresAt = c.now().Add(time.Duration(decoded.ExpiresIn) * time.Second)
	state := c.token
	c.mu.Unlock()

	if err := c.store.Save(state); err != nil {
		return err
	}
	return nil
}

func responseError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	message := strings.TrimSpace(string(body))
	if message == "" {
		return fmt.Errorf("%s: status %d", operation, resp.StatusCode)
	}
	return fmt.Errorf("%s: status %d: %s", operation, resp.StatusCode, message)
}
