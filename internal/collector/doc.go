// Package collector drives scrobble collection: the rolling poll loop that
// keeps the music dataset current and the one-shot rescue that backfills a
// missed window.
package collector
