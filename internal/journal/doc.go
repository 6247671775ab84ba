// Package journal keeps a SQLite history of collector cycles, rescue and
// phone-import invocations, and tracker sessions, surfaced by the sessions
// command.
package journal
