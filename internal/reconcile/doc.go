// Package reconcile implements the incremental reconciliation engine shared
// by the rolling music collector and the fixed-window rescue run: normalize
// provider timestamps to local time, filter to the collection window, drop
// already-persisted keys, and attach enrichment, preserving chronological
// order throughout.
package reconcile
