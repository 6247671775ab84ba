package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"lifelog/internal/config"
	"lifelog/internal/dataset"
	"lifelog/internal/localtime"
	"lifelog/internal/logging"
	"lifelog/internal/reconcile"
	"lifelog/internal/services/lastfm"
	"lifelog/internal/services/spotify"
	"lifelog/internal/testsupport"
)

type fakeHistory struct {
	batch    []lastfm.Scrobble
	err      error
	tagCalls int
}

func (f *fakeHistory) RecentTracks(ctx context.Context, limit int) ([]lastfm.Scrobble, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batch) > limit {
		return f.batch[:limit], nil
	}
	return f.batch, nil
}

func (f *fakeHistory) TopTags(ctx context.Context, artist string, limit int) ([]string, error) {
	f.tagCalls++
	return []string{"indie rock"}, nil
}

type fakeCatalog struct {
	searches int
}

func (f *fakeCatalog) SearchTrack(ctx context.Context, title, artist string) (*spotify.TrackMatch, error) {
	f.searches++
	return &spotify.TrackMatch{ID: "t1", Name: title, PrimaryArtist: "artist-1"}, nil
}

func (f *fakeCatalog) Artist(ctx context.Context, id string) (*spotify.ArtistDetails, error) {
	return &spotify.ArtistDetails{Genres: []string{"dream pop", "shoegaze"}, Popularity: 71}, nil
}

type spyNotifier struct {
	rescueSaved []int
	errorLabels []string
}

func (s *spyNotifier) NotifySessionComplete(context.Context, int) error { return nil }

func (s *spyNotifier) NotifyRescueComplete(_ context.Context, saved int) error {
	s.rescueSaved = append(s.rescueSaved, saved)
	return nil
}

func (s *spyNotifier) NotifyError(_ context.Context, _ error, label string) error {
	s.errorLabels = append(s.errorLabels, label)
	return nil
}

func (s *spyNotifier) TestNotification(context.Context) error { return nil }

// fixedNow is 22:00 local on the reference evening. The provider reports
// UTC, eight hours behind.
var fixedNow = time.Date(2025, time.November, 29, 22, 0, 0, 0, time.UTC)

func newTestCollector(t *testing.T, history *fakeHistory, catalog spotify.Catalog) (*Collector, *spyNotifier) {
	t.Helper()

	cfg := config.Default()
	cfg.Collector.TimezoneOffsetHours = 8
	cfg.Rescue.WindowStart = "2025-11-29 18:01:00"
	cfg.Rescue.WindowEnd = "2025-11-29 21:05:00"
	cfg.Rescue.FetchLimit = 100

	notifier := &spyNotifier{}
	collector := &Collector{
		cfg:        &cfg,
		history:    history,
		catalog:    catalog,
		notifier:   notifier,
		logger:     logging.NewNop(),
		now:        func() time.Time { return fixedNow },
		dataPath:   filepath.Join(t.TempDir(), "music_data.csv"),
		fetchLimit: 50,
	}
	return collector, notifier
}

func TestCycleAppendsNewEventsInOrder(t *testing.T) {
	history := &fakeHistory{batch: []lastfm.Scrobble{
		{Artist: "Beach House", Title: "Myth", NowPlaying: true},
		{Artist: "Beach House", Title: "Space Song", PlayedAt: "29 Nov 2025, 13:30"},
		{Artist: "Alvvays", Title: "Archie, Marry Me", PlayedAt: "29 Nov 2025, 13:01"},
	}}
	catalog := &fakeCatalog{}
	collector, _ := newTestCollector(t, history, catalog)

	window := reconcile.Rolling(time.Date(2025, time.November, 29, 18, 0, 0, 0, time.UTC))
	result, err := collector.Cycle(context.Background(), window)
	if err != nil {
		t.Fatalf("Cycle returned error: %v", err)
	}
	if result.Fetched != 3 || result.Saved != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}

	rows, err := dataset.ReadRows(collector.dataPath)
	if err != nil {
		t.Fatalf("ReadRows returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	// Oldest first: 21:01, 21:30 local, then the in-progress track at now.
	if rows[0][0] != "2025-11-29 21:01:00" || rows[0][1] != "Alvvays" {
		t.Errorf("unexpected first row: %v", rows[0])
	}
	if rows[1][0] != "2025-11-29 21:30:00" || rows[1][2] != "Space Song" {
		t.Errorf("unexpected second row: %v", rows[1])
	}
	if rows[2][0] != localtime.Format(fixedNow) || rows[2][2] != "Myth" {
		t.Errorf("unexpected now-playing row: %v", rows[2])
	}
	if rows[0][3] != "dream pop, shoegaze" || rows[0][4] != "71" {
		t.Errorf("enrichment missing from row: %v", rows[0])
	}
}

func TestCycleSkipsStoredTimestamps(t *testing.T) {
	history := &fakeHistory{batch: []lastfm.Scrobble{
		{Artist: "Alvvays", Title: "Archie, Marry Me", PlayedAt: "29 Nov 2025, 13:01"},
	}}
	collector, _ := newTestCollector(t, history, &fakeCatalog{})

	window := reconcile.Rolling(time.Date(2025, time.November, 29, 18, 0, 0, 0, time.UTC))
	if _, err := collector.Cycle(context.Background(), window); err != nil {
		t.Fatalf("first Cycle returned error: %v", err)
	}

	result, err := collector.Cycle(context.Background(), window)
	if err != nil {
		t.Fatalf("second Cycle returned error: %v", err)
	}
	if result.Saved != 0 {
		t.Errorf("repeat cycle should save nothing, saved %d", result.Saved)
	}

	rows, err := dataset.ReadRows(collector.dataPath)
	if err != nil {
		t.Fatalf("ReadRows returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row after repeat cycle, got %d", len(rows))
	}
}

func TestCycleEnrichmentCachedPerArtist(t *testing.T) {
	history := &fakeHistory{batch: []lastfm.Scrobble{
		{Artist: "Beach House", Title: "Myth", PlayedAt: "29 Nov 2025, 13:10"},
		{Artist: "Beach House", Title: "Space Song", PlayedAt: "29 Nov 2025, 13:05"},
		{Artist: "Beach House", Title: "Lazuli", PlayedAt: "29 Nov 2025, 13:01"},
	}}
	catalog := &fakeCatalog{}
	collector, _ := newTestCollector(t, history, catalog)

	window := reconcile.Rolling(time.Date(2025, time.November, 29, 18, 0, 0, 0, time.UTC))
	if _, err := collector.Cycle(context.Background(), window); err != nil {
		t.Fatalf("Cycle returned error: %v", err)
	}
	if catalog.searches != 1 {
		t.Errorf("expected 1 catalog search for one artist, got %d", catalog.searches)
	}
}

func TestCycleReportsFetchFailure(t *testing.T) {
	history := &fakeHistory{err: errors.New("service unavailable")}
	collector, _ := newTestCollector(t, history, &fakeCatalog{})

	window := reconcile.Rolling(time.Date(2025, time.November, 29, 18, 0, 0, 0, time.UTC))
	_, err := collector.Cycle(context.Background(), window)
	if err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if _, statErr := os.Stat(collector.dataPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("failed cycle must not create the dataset")
	}
}

func TestRescueKeepsOnlyWindowedTracks(t *testing.T) {
	history := &fakeHistory{batch: []lastfm.Scrobble{
		{Artist: "Men I Trust", Title: "Show Me How", NowPlaying: true},
		{Artist: "Beach House", Title: "Space Song", PlayedAt: "29 Nov 2025, 13:10"}, // 21:10 local, after window
		{Artist: "Alvvays", Title: "Dreams Tonite", PlayedAt: "29 Nov 2025, 10:30"}, // 18:30 local, inside
		{Artist: "Alvvays", Title: "In Undertow", PlayedAt: "29 Nov 2025, 09:59"},   // 17:59 local, before window
	}}
	collector, notifier := newTestCollector(t, history, &fakeCatalog{})

	result, err := collector.Rescue(context.Background())
	if err != nil {
		t.Fatalf("Rescue returned error: %v", err)
	}
	if result.Saved != 1 {
		t.Fatalf("expected 1 rescued track, got %d", result.Saved)
	}

	rows, err := dataset.ReadRows(collector.dataPath)
	if err != nil {
		t.Fatalf("ReadRows returned error: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "2025-11-29 18:30:00" || rows[0][2] != "Dreams Tonite" {
		t.Errorf("unexpected rescued rows: %v", rows)
	}
	if len(notifier.rescueSaved) != 1 || notifier.rescueSaved[0] != 1 {
		t.Errorf("expected rescue notification for 1 track, got %v", notifier.rescueSaved)
	}
}

func TestRescueIsRepeatable(t *testing.T) {
	history := &fakeHistory{batch: []lastfm.Scrobble{
		{Artist: "Alvvays", Title: "Dreams Tonite", PlayedAt: "29 Nov 2025, 10:30"},
	}}
	collector, _ := newTestCollector(t, history, &fakeCatalog{})

	if _, err := collector.Rescue(context.Background()); err != nil {
		t.Fatalf("first Rescue returned error: %v", err)
	}
	second, err := collector.Rescue(context.Background())
	if err != nil {
		t.Fatalf("second Rescue returned error: %v", err)
	}
	if second.Saved != 0 {
		t.Errorf("repeat rescue should save nothing, saved %d", second.Saved)
	}
}

func TestNewWiresConfigAndDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithMusicProviders(),
		testsupport.WithRescueWindow("2025-11-29 18:01:00", "2025-11-29 21:05:00"),
	)
	cfg.Collector.TimezoneOffsetHours = 8
	cfg.Collector.PollInterval = 0
	cfg.Collector.FetchLimit = 0

	history := &fakeHistory{batch: []lastfm.Scrobble{
		{Artist: "Alvvays", Title: "Dreams Tonite", PlayedAt: "29 Nov 2025, 10:30"},
	}}
	notifier := &spyNotifier{}
	collector, err := New(cfg, history, &fakeCatalog{}, notifier, nil, nil, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if collector.pollInterval != 20*time.Minute {
		t.Errorf("expected poll interval fallback, got %v", collector.pollInterval)
	}
	if collector.fetchLimit != 50 {
		t.Errorf("expected fetch limit fallback, got %d", collector.fetchLimit)
	}
	if collector.dataPath != cfg.MusicDataPath() {
		t.Errorf("unexpected data path %q", collector.dataPath)
	}

	result, err := collector.Rescue(context.Background())
	if err != nil {
		t.Fatalf("Rescue returned error: %v", err)
	}
	if result.Saved != 1 {
		t.Fatalf("expected 1 rescued track, got %d", result.Saved)
	}
	if _, err := dataset.ReadRows(cfg.MusicDataPath()); err != nil {
		t.Errorf("dataset missing under configured data dir: %v", err)
	}
}

func TestRunFailsFastWhenLockIsHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMusicProviders())

	collector, err := New(cfg, &fakeHistory{}, &fakeCatalog{}, &spyNotifier{}, nil, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	held := flock.New(filepath.Join(cfg.Paths.LogDir, "lifelog-collect.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-acquire lock: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	err = collector.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestRescueRejectsInvalidWindow(t *testing.T) {
	collector, _ := newTestCollector(t, &fakeHistory{}, &fakeCatalog{})
	collector.cfg.Rescue.WindowStart = "2025-11-29 22:00:00"
	collector.cfg.Rescue.WindowEnd = "2025-11-29 18:00:00"

	if _, err := collector.Rescue(context.Background()); err == nil {
		t.Fatal("expected error for inverted rescue window")
	}
}
