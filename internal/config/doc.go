// Package config loads, normalizes, and validates the lifelog TOML
// configuration. A single Config value is constructed at startup and passed
// to every component; nothing reads configuration from process globals.
package config
