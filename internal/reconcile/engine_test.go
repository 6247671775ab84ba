package reconcile_test

import (
	"context"
	"testing"
	"time"

	"lifelog/internal/localtime"
	"lifelog/internal/reconcile"
	"lifelog/internal/services/spotify"
)

var (
	spotifyMatch   = spotify.TrackMatch{ID: "t1", PrimaryArtist: "a1"}
	spotifyDetails = spotify.ArtistDetails{Genres: []string{"indie rock"}, Popularity: 78}
)

func fixedNow() time.Time {
	return time.Date(2025, time.November, 29, 21, 0, 0, 0, time.Local)
}

func newNormalizer() *localtime.Normalizer {
	return localtime.New(8, fixedNow)
}

func TestReconcileEmitsNewEventInsideWindow(t *testing.T) {
	window := reconcile.Rolling(mustTime(t, "2025-11-29 18:00:00"))
	engine := reconcile.NewEngine(newNormalizer(), window, nil, nil, nil)

	// Provider time is UTC; 10:10 UTC + 8h = 18:10 local.
	batch := []reconcile.RawEvent{
		{Artist: "Mitski", Title: "Stay Soft", PlayedAt: "29 Nov 2025, 10:10"},
	}
	events := engine.Reconcile(context.Background(), batch)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Timestamp != "2025-11-29 18:10:00" {
		t.Fatalf("unexpected timestamp: %q", events[0].Timestamp)
	}
	if events[0].Genres != reconcile.DefaultGenres {
		t.Fatalf("expected default genres without enricher, got %q", events[0].Genres)
	}
}

func TestReconcileSkipsAlreadyPersistedKeys(t *testing.T) {
	window := reconcile.Rolling(mustTime(t, "2025-11-29 18:00:00"))
	existing := map[string]struct{}{"2025-11-29 18:10:00": {}}
	engine := reconcile.NewEngine(newNormalizer(), window, existing, nil, nil)

	batch := []reconcile.RawEvent{
		{Artist: "Mitski", Title: "Stay Soft", PlayedAt: "29 Nov 2025, 10:10"},
	}
	if events := engine.Reconcile(context.Background(), batch); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestReconcileBackfillKeepsOnlyEventsInsideWindow(t *testing.T) {
	window := reconcile.Backfill(
		mustTime(t, "2025-11-29 18:01:00"),
		mustTime(t, "2025-11-29 21:05:00"),
	)
	engine := reconcile.NewEngine(newNormalizer(), window, nil, nil, nil)

	// Local times after the +8h shift: 17:59, 18:30, 21:10.
	batch := []reconcile.RawEvent{
		{Artist: "C", Title: "Late", PlayedAt: "29 Nov 2025, 13:10"},
		{Artist: "B", Title: "Kept", PlayedAt: "29 Nov 2025, 10:30"},
		{Artist: "A", Title: "Early", PlayedAt: "29 Nov 2025, 09:59"},
	}
	events := engine.Reconcile(context.Background(), batch)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Title != "Kept" || events[0].Timestamp != "2025-11-29 18:30:00" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestReconcilePreservesChronologicalOrder(t *testing.T) {
	window := reconcile.Rolling(mustTime(t, "2025-11-29 18:00:00"))
	engine := reconcile.NewEngine(newNormalizer(), window, nil, nil, nil)

	// Newest first, as the provider delivers.
	batch := []reconcile.RawEvent{
		{Artist: "X", Title: "Third", PlayedAt: "29 Nov 2025, 10:20"},
		{Artist: "X", Title: "Second", PlayedAt: "29 Nov 2025, 10:15"},
		{Artist: "X", Title: "First", PlayedAt: "29 Nov 2025, 10:10"},
	}
	events := engine.Reconcile(context.Background(), batch)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if events[i].Title != want {
			t.Fatalf("event %d = %q, want %q", i, events[i].Title, want)
		}
	}
}

func TestReconcileKeepsEventWithUnparseableTimestamp(t *testing.T) {
	window := reconcile.Rolling(mustTime(t, "2025-11-29 18:00:00"))
	engine := reconcile.NewEngine(newNormalizer(), window, nil, nil, nil)

	batch := []reconcile.RawEvent{
		{Artist: "Mitski", Title: "Stay Soft", PlayedAt: "not-a-timestamp"},
	}
	events := engine.Reconcile(context.Background(), batch)
	if len(events) != 1 {
		t.Fatalf("expected the event to survive with a substituted time, got %d", len(events))
	}
	if events[0].Timestamp != "2025-11-29 21:00:00" {
		t.Fatalf("expected current wall clock, got %q", events[0].Timestamp)
	}
}

func TestReconcileInProgressEventGetsCurrentTime(t *testing.T) {
	window := reconcile.Rolling(mustTime(t, "2025-11-29 18:00:00"))
	engine := reconcile.NewEngine(newNormalizer(), window, nil, nil, nil)

	batch := []reconcile.RawEvent{
		{Artist: "Mitski", Title: "Stay Soft"},
	}
	events := engine.Reconcile(context.Background(), batch)
	if len(events) != 1 || events[0].Timestamp != "2025-11-29 21:00:00" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReconcileDedupesWithinOneBatch(t *testing.T) {
	window := reconcile.Rolling(mustTime(t, "2025-11-29 18:00:00"))
	engine := reconcile.NewEngine(newNormalizer(), window, nil, nil, nil)

	batch := []reconcile.RawEvent{
		{Artist: "Mitski", Title: "Stay Soft", PlayedAt: "29 Nov 2025, 10:10"},
		{Artist: "Mitski", Title: "Stay Soft", PlayedAt: "29 Nov 2025, 10:10"},
	}
	if events := engine.Reconcile(context.Background(), batch); len(events) != 1 {
		t.Fatalf("expected a single event for duplicate keys, got %d", len(events))
	}
}

func TestReconcileAttachesEnrichment(t *testing.T) {
	window := reconcile.Rolling(mustTime(t, "2025-11-29 18:00:00"))
	catalog := &fakeCatalog{
		match:   &spotifyMatch,
		details: &spotifyDetails,
	}
	enricher := reconcile.NewEnricher(catalog, nil, nil)
	engine := reconcile.NewEngine(newNormalizer(), window, nil, enricher, nil)

	batch := []reconcile.RawEvent{
		{Artist: "Mitski", Title: "Stay Soft", PlayedAt: "29 Nov 2025, 10:10"},
	}
	events := engine.Reconcile(context.Background(), batch)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Genres != "indie rock" || events[0].Popularity != 78 {
		t.Fatalf("unexpected enrichment on event: %+v", events[0])
	}

	row := events[0].Row()
	if len(row) != 5 || row[4] != "78" {
		t.Fatalf("unexpected row: %v", row)
	}
}
