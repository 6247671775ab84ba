// Package tracker runs fixed-length foreground-window observation sessions,
// sampling the frontmost macOS application via AppleScript and appending each
// sample to the activity dataset.
package tracker
