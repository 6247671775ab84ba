// Package logging builds the shared slog logger. Console output goes to
// stdout; when a log directory is configured the same records are appended
// to lifelog.log.
package logging
