package reconcile

import (
	"context"
	"log/slog"
	"strconv"

	"lifelog/internal/localtime"
	"lifelog/internal/logging"
)

// RawEvent is one play record as fetched from the provider. PlayedAt is the
// provider's raw timestamp string, empty when the track is still playing.
type RawEvent struct {
	Artist   string
	Title    string
	PlayedAt string
}

// Event is a reconciled record ready for the dataset writer. Timestamp is in
// the storage format and doubles as the dedup key.
type Event struct {
	Timestamp  string
	Artist     string
	Title      string
	Genres     string
	Popularity int
}

// Row renders the event as a music dataset row.
func (e Event) Row() []string {
	return []string{e.Timestamp, e.Artist, e.Title, e.Genres, strconv.Itoa(e.Popularity)}
}

// Engine filters one fetch batch down to the events that are new, inside the
// collection window, and enriched. It is built fresh for every cycle: the
// dedup index reflects the dataset as of this cycle and the enrichment cache
// is run-scoped.
type Engine struct {
	normalizer *localtime.Normalizer
	window     Window
	existing   map[string]struct{}
	enricher   *Enricher
	logger     *slog.Logger
}

// NewEngine builds an Engine. existing is the set of timestamp keys already
// persisted; enricher may be nil for datasets without enrichment.
func NewEngine(normalizer *localtime.Normalizer, window Window, existing map[string]struct{}, enricher *Enricher, logger *slog.Logger) *Engine {
	if existing == nil {
		existing = make(map[string]struct{})
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		normalizer: normalizer,
		window:     window,
		existing:   existing,
		enricher:   enricher,
		logger:     logger,
	}
}

// Reconcile processes a provider batch in newest-first order, the order the
// provider delivers. Events are evaluated oldest first and the emitted slice
// preserves that chronological order, which the append writer relies on.
//
// For each event: normalize the timestamp, drop it if outside the window,
// drop it if its key is already persisted, enrich, emit. A timestamp that
// fails to parse is kept with the current time rather than dropped, so a
// provider format change loses fidelity, not data.
func (e *Engine) Reconcile(ctx context.Context, batch []RawEvent) []Event {
	var emitted []Event

	for i := len(batch) - 1; i >= 0; i-- {
		raw := batch[i]

		local, fellBack := e.normalizer.Normalize(raw.PlayedAt)
		if fellBack {
			e.logger.Warn("timestamp parse failed, substituting current time",
				logging.String("artist", raw.Artist),
				logging.String("title", raw.Title),
				logging.String("raw", raw.PlayedAt))
		}

		if !e.window.Contains(local) {
			continue
		}

		key := localtime.Format(local)
		if _, seen := e.existing[key]; seen {
			continue
		}

		event := Event{
			Timestamp: key,
			Artist:    raw.Artist,
			Title:     raw.Title,
			Genres:    DefaultGenres,
		}
		if e.enricher != nil {
			enrichment := e.enricher.Enrich(ctx, raw.Artist, raw.Title)
			event.Genres = enrichment.Genres
			event.Popularity = enrichment.Popularity
		}

		// Guard against duplicate keys inside one batch as well.
		e.existing[key] = struct{}{}
		emitted = append(emitted, event)
	}

	return emitted
}
