// Package spotify wraps the Spotify Web API surface used by lifelog: track
// search and artist details for enrichment, and device listing plus playback
// start for the autoplay helper. Auth state is cached on disk so collection
// runs unattended.
package spotify
