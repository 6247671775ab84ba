// Package phone imports screen-time pickup exports dropped into the inbox
// directory, converting sessions to per-pickup durations and merging them
// into the clean phone dataset without disturbing existing rows.
package phone
