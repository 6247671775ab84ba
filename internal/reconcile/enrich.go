package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"lifelog/internal/logging"
	"lifelog/internal/services/spotify"
)

// DefaultGenres is stored when every enrichment lookup comes up empty.
const DefaultGenres = "Unknown"

// Enrichment carries the metadata attached to a music event.
type Enrichment struct {
	Genres     string
	Popularity int
}

// TagSource is the fallback genre provider, satisfied by the Last.fm client.
type TagSource interface {
	TopTags(ctx context.Context, artist string, limit int) ([]string, error)
}

// Enricher resolves genre and popularity for an artist, memoizing per run.
// Genre and popularity are treated as artist-level properties: the track
// title only sharpens the catalog search, it is not part of the cache key.
// Lookups are best-effort; a failing artist is cached with defaults so it is
// not queried again within the run.
type Enricher struct {
	catalog spotify.Catalog
	tags    TagSource
	logger  *slog.Logger
	cache   map[string]Enrichment
}

// NewEnricher builds an Enricher for one collection run. Either source may
// be nil, in which case that lookup step is skipped.
func NewEnricher(catalog spotify.Catalog, tags TagSource, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enricher{
		catalog: catalog,
		tags:    tags,
		logger:  logger,
		cache:   make(map[string]Enrichment),
	}
}

// Enrich resolves enrichment for an artist/title pair. The lookup order is
// fixed: catalog search then artist details, then top-tag fallback for
// genres, then defaults. First success wins per field.
func (e *Enricher) Enrich(ctx context.Context, artist, title string) Enrichment {
	if cached, ok := e.cache[artist]; ok {
		return cached
	}

	result := Enrichment{Genres: DefaultGenres}
	e.lookupCatalog(ctx, artist, title, &result)
	if result.Genres == DefaultGenres {
		e.lookupTags(ctx, artist, &result)
	}

	e.cache[artist] = result
	return result
}

func (e *Enricher) lookupCatalog(ctx context.Context, artist, title string, result *Enrichment) {
	if e.catalog == nil {
		return
	}

	match, err := e.catalog.SearchTrack(ctx, title, artist)
	if err != nil {
		e.logger.Warn("catalog search failed", logging.String("artist", artist), logging.Error(err))
		return
	}
	if match == nil || match.PrimaryArtist == "" {
		return
	}

	details, err := e.catalog.Artist(ctx, match.PrimaryArtist)
	if err != nil {
		e.logger.Warn("artist details failed", logging.String("artist", artist), logging.Error(err))
		return
	}
	if len(details.Genres) > 0 {
		result.Genres = strings.Join(details.Genres, ", ")
	}
	result.Popularity = details.Popularity
}

func (e *Enricher) lookupTags(ctx context.Context, artist string, result *Enrichment) {
	if e.tags == nil {
		return
	}

	tags, err := e.tags.TopTags(ctx, artist, 5)
	if err != nil {
		e.logger.Warn("tag fallback failed", logging.String("artist", artist), logging.Error(err))
		return
	}
	if len(tags) > 0 {
		result.Genres = strings.Join(tags, ", ")
	}
}
