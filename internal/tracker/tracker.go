package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lifelog/internal/config"
	"lifelog/internal/dataset"
	"lifelog/internal/journal"
	"lifelog/internal/localtime"
	"lifelog/internal/logging"
	"lifelog/internal/notifications"
)

// Result summarizes one observation session.
type Result struct {
	Samples     int
	Elapsed     time.Duration
	Interrupted bool
}

// Tracker polls the foreground window for a fixed session and appends each
// observation to the activity dataset.
type Tracker struct {
	logPath      string
	pollInterval time.Duration
	sessionLimit time.Duration
	durationHrs  int

	probe    Probe
	notifier notifications.Service
	journal  *journal.Store
	logger   *slog.Logger
	now      func() time.Time
}

// Option adjusts Tracker construction, primarily for tests.
type Option func(*Tracker)

// WithProbe overrides the foreground window probe.
func WithProbe(probe Probe) Option {
	return func(t *Tracker) {
		if probe != nil {
			t.probe = probe
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New builds a Tracker from configuration. The journal store may be nil, in
// which case the session is not recorded in run history.
func New(cfg *config.Config, notifier notifications.Service, store *journal.Store, logger *slog.Logger, opts ...Option) (*Tracker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tracker: configuration is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	poll := time.Duration(cfg.Tracker.PollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}

	tracker := &Tracker{
		logPath:      cfg.ActivityLogPath(),
		pollInterval: poll,
		sessionLimit: time.Duration(cfg.Tracker.SessionDurationHours) * time.Hour,
		durationHrs:  cfg.Tracker.SessionDurationHours,
		probe:        NewProbe(),
		notifier:     notifier,
		journal:      store,
		logger:       logger.With(logging.String("component", "tracker")),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(tracker)
	}
	return tracker, nil
}

// Run observes the foreground window until the session limit elapses or ctx
// is cancelled. Cancellation is a clean stop, not an error.
func (t *Tracker) Run(ctx context.Context) (Result, error) {
	var result Result

	runID := t.beginRun(ctx)
	start := t.now()

	t.logger.Info("observation session started",
		logging.Int("duration_hours", t.durationHrs),
		logging.Duration("poll_interval", t.pollInterval),
		logging.String("log_file", t.logPath),
	)

	if err := t.observe(ctx, &result); err != nil {
		t.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, err
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			result.Elapsed = t.now().Sub(start)
			result.Interrupted = true
			t.logger.Info("observation session stopped",
				logging.Int("samples", result.Samples),
				logging.Duration("elapsed", result.Elapsed),
			)
			t.finishRun(context.WithoutCancel(ctx), runID, result, "interrupted")
			return result, nil
		case <-ticker.C:
			result.Elapsed = t.now().Sub(start)
			if result.Elapsed >= t.sessionLimit {
				t.logger.Info("observation session complete",
					logging.Int("samples", result.Samples),
					logging.Duration("elapsed", result.Elapsed),
				)
				if err := t.notifier.NotifySessionComplete(ctx, t.durationHrs); err != nil {
					t.logger.Warn("session notification failed", logging.Error(err))
				}
				t.finishRun(ctx, runID, result, "completed")
				return result, nil
			}
			if err := t.observe(ctx, &result); err != nil {
				t.finishRun(ctx, runID, result, "failed: "+err.Error())
				return result, err
			}
		}
	}
}

func (t *Tracker) observe(ctx context.Context, result *Result) error {
	sample := t.probe.Sample(ctx)
	if sample.App == "" {
		return nil
	}

	timestamp := localtime.Format(localtime.WallClock(t.now()))
	row := []string{timestamp, sample.App, sample.WindowTitle}
	if err := dataset.AppendRows(t.logPath, dataset.ActivityHeader, [][]string{row}); err != nil {
		return fmt.Errorf("append activity sample: %w", err)
	}
	result.Samples++
	return nil
}

func (t *Tracker) beginRun(ctx context.Context) string {
	if t.journal == nil {
		return ""
	}
	id, err := t.journal.Begin(ctx, journal.KindTrackerSession)
	if err != nil {
		t.logger.Warn("journal start failed", logging.Error(err))
		return ""
	}
	return id
}

func (t *Tracker) finishRun(ctx context.Context, id string, result Result, note string) {
	if t.journal == nil || id == "" {
		return
	}
	if err := t.journal.Finish(ctx, id, result.Samples, result.Samples, note); err != nil {
		t.logger.Warn("journal finish failed", logging.Error(err))
	}
}
