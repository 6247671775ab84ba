// Package player nudges the local Spotify app awake and starts the target
// playlist. Everything here is best-effort: a failed autoplay means the
// operator presses play themselves, never a dead collection session.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"lifelog/internal/logging"
	"lifelog/internal/services/spotify"
)

// appLaunchDelay gives the Spotify UI time to load before the wake nudge,
// and the nudge time to register with the API before playback transfer.
const (
	appLaunchDelay = 4 * time.Second
	wakeDelay      = 2 * time.Second
)

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Launcher opens the Spotify app and redirects playback to a playlist.
type Launcher struct {
	player   spotify.Player
	playlist string
	runner   commandRunner
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option adjusts Launcher construction, primarily for tests.
type Option func(*Launcher)

// WithRunner overrides the command runner.
func WithRunner(runner commandRunner) Option {
	return func(l *Launcher) {
		if runner != nil {
			l.runner = runner
		}
	}
}

// WithSleep overrides the delay function.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Launcher) {
		if sleep != nil {
			l.sleep = sleep
		}
	}
}

// New builds a Launcher targeting the given playlist URI.
func New(player spotify.Player, playlist string, logger *slog.Logger, opts ...Option) (*Launcher, error) {
	if player == nil {
		return nil, errors.New("player: playback client is required")
	}
	if playlist == "" {
		return nil, errors.New("player: target playlist is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	launcher := &Launcher{
		player:   player,
		playlist: playlist,
		runner:   execCommandRunner{},
		logger:   logger.With(logging.String("component", "player")),
		sleep:    contextSleep,
	}
	for _, opt := range opts {
		opt(launcher)
	}
	return launcher, nil
}

// Start opens the app, wakes the local player so the API sees an active
// device, and transfers playback to the target playlist. The wake nudge is
// an AppleScript play command pressed locally; without it the freshly opened
// app never registers as an available device.
func (l *Launcher) Start(ctx context.Context) error {
	l.logger.Info("launching playback app")
	if err := l.runner.Run(ctx, "open", "-a", "Spotify"); err != nil {
		return fmt.Errorf("open app: %w", err)
	}
	if err := l.sleep(ctx, appLaunchDelay); err != nil {
		return err
	}

	if err := l.runner.Run(ctx, "osascript", "-e", `tell application "Spotify" to play`); err != nil {
		l.logger.Warn("local wake nudge failed", logging.Error(err))
	}
	if err := l.sleep(ctx, wakeDelay); err != nil {
		return err
	}

	devices, err := l.player.Devices(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if len(devices) == 0 {
		return errors.New("app is open but no device is active; press play manually")
	}

	if err := l.player.StartPlayback(ctx, devices[0].ID, l.playlist); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	l.logger.Info("playback started", logging.String("device", devices[0].Name))
	return nil
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
