// Package notifications delivers completion and error notices, either as
// ntfy push messages, macOS banners, or both.
package notifications
