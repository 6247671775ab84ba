// Package dataset owns the on-disk CSV datasets: the timestamp dedup index,
// the append writer used by the music and window trackers, and the
// full-merge writer used by the phone importer. The timestamp string is the
// sole row identity everywhere.
package dataset
