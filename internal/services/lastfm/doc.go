// Package lastfm wraps the Last.fm web API: recent-track history for the
// collector and artist top tags for the enrichment fallback.
package lastfm
