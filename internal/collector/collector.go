package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"lifelog/internal/config"
	"lifelog/internal/dataset"
	"lifelog/internal/journal"
	"lifelog/internal/localtime"
	"lifelog/internal/logging"
	"lifelog/internal/notifications"
	"lifelog/internal/reconcile"
	"lifelog/internal/services/lastfm"
	"lifelog/internal/services/spotify"
)

// CycleResult summarizes one fetch-and-reconcile cycle.
type CycleResult struct {
	Fetched int
	Saved   int
}

// Collector runs the rolling scrobble collection loop. Each cycle fetches
// the recent listening history, reconciles it against the music dataset, and
// appends whatever is new.
type Collector struct {
	cfg      *config.Config
	history  lastfm.History
	catalog  spotify.Catalog
	notifier notifications.Service
	journal  *journal.Store
	logger   *slog.Logger
	now      func() time.Time

	dataPath     string
	pollInterval time.Duration
	lookback     time.Duration
	fetchLimit   int

	lock *flock.Flock
}

// Option adjusts Collector construction, primarily for tests.
type Option func(*Collector)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a Collector. The catalog may be nil, in which case enrichment
// falls back to top tags only. The journal store may be nil.
func New(cfg *config.Config, history lastfm.History, catalog spotify.Catalog, notifier notifications.Service, store *journal.Store, logger *slog.Logger, opts ...Option) (*Collector, error) {
	if cfg == nil {
		return nil, errors.New("collector: configuration is required")
	}
	if history == nil {
		return nil, errors.New("collector: listening history client is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	collector := &Collector{
		cfg:          cfg,
		history:      history,
		catalog:      catalog,
		notifier:     notifier,
		journal:      store,
		logger:       logger.With(logging.String("component", "collector")),
		now:          time.Now,
		dataPath:     cfg.MusicDataPath(),
		pollInterval: time.Duration(cfg.Collector.PollInterval) * time.Second,
		lookback:     time.Duration(cfg.Collector.LookbackBuffer) * time.Second,
		fetchLimit:   cfg.Collector.FetchLimit,
		lock:         flock.New(filepath.Join(cfg.Paths.LogDir, "lifelog-collect.lock")),
	}
	if collector.pollInterval <= 0 {
		collector.pollInterval = 20 * time.Minute
	}
	if collector.fetchLimit <= 0 {
		collector.fetchLimit = 50
	}
	for _, opt := range opts {
		opt(collector)
	}
	return collector, nil
}

// Run collects until ctx is cancelled. The collection window opens a
// look-back buffer before start so a track already playing when the loop
// starts is not lost. Only one collector may run against a dataset at a
// time; a second invocation fails fast instead of double-writing.
func (c *Collector) Run(ctx context.Context) error {
	locked, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire collector lock: %w", err)
	}
	if !locked {
		return errors.New("another collector instance is already running")
	}
	defer func() {
		if unlockErr := c.lock.Unlock(); unlockErr != nil {
			c.logger.Warn("release collector lock failed", logging.Error(unlockErr))
		}
	}()

	windowStart := localtime.WallClock(c.now()).Add(-c.lookback)
	window := reconcile.Rolling(windowStart)

	c.logger.Info("collection started",
		logging.String("window_start", localtime.Format(windowStart)),
		logging.Duration("poll_interval", c.pollInterval),
		logging.String("data_file", c.dataPath),
	)

	c.runCycle(ctx, window)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collection stopped")
			return nil
		case <-ticker.C:
			c.runCycle(ctx, window)
		}
	}
}

// runCycle executes one cycle and keeps the loop alive on failure. A broken
// provider or network outage costs one cycle, not the session.
func (c *Collector) runCycle(ctx context.Context, window reconcile.Window) {
	result, err := c.Cycle(ctx, window)
	if err != nil {
		c.logger.Warn("collection cycle failed", logging.Error(err))
		if notifyErr := c.notifier.NotifyError(ctx, err, "music collection"); notifyErr != nil {
			c.logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return
	}
	if result.Saved > 0 {
		c.logger.Info("cycle complete",
			logging.Int("fetched", result.Fetched),
			logging.Int("saved", result.Saved),
		)
	} else {
		c.logger.Debug("cycle complete, nothing new", logging.Int("fetched", result.Fetched))
	}
}

// Cycle fetches the recent history once and appends the events that fall
// inside window and are not already stored.
func (c *Collector) Cycle(ctx context.Context, window reconcile.Window) (CycleResult, error) {
	var result CycleResult

	runID := c.beginRun(ctx, journal.KindCollectCycle)

	batch, err := c.history.RecentTracks(ctx, c.fetchLimit)
	if err != nil {
		c.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, fmt.Errorf("fetch recent tracks: %w", err)
	}
	result.Fetched = len(batch)

	existing, err := c.loadExisting()
	if err != nil {
		// A corrupt dataset must not halt collection; duplicates are
		// cheaper than lost plays.
		c.logger.Warn("dataset index unreadable, collecting without dedup", logging.Error(err))
	}

	normalizer := localtime.New(c.cfg.Collector.TimezoneOffsetHours, c.now)
	enricher := reconcile.NewEnricher(c.catalog, c.history, c.logger)
	engine := reconcile.NewEngine(normalizer, window, existing, enricher, c.logger)

	events := engine.Reconcile(ctx, toRawEvents(batch))
	if len(events) == 0 {
		c.finishRun(ctx, runID, result, "completed")
		return result, nil
	}

	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, event.Row())
	}
	if err := c.appendMusicRows(rows); err != nil {
		c.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, err
	}
	result.Saved = len(rows)

	c.finishRun(ctx, runID, result, "completed")
	return result, nil
}

// loadExisting reads the dedup index from the music dataset.
func (c *Collector) loadExisting() (map[string]struct{}, error) {
	return dataset.LoadKeys(c.dataPath)
}

func (c *Collector) appendMusicRows(rows [][]string) error {
	if err := dataset.AppendRows(c.dataPath, dataset.MusicHeader, rows); err != nil {
		return fmt.Errorf("append music rows: %w", err)
	}
	return nil
}

func toRawEvents(batch []lastfm.Scrobble) []reconcile.RawEvent {
	events := make([]reconcile.RawEvent, 0, len(batch))
	for _, scrobble := range batch {
		events = append(events, reconcile.RawEvent{
			Artist:   scrobble.Artist,
			Title:    scrobble.Title,
			PlayedAt: scrobble.PlayedAt,
		})
	}
	return events
}

func (c *Collector) beginRun(ctx context.Context, kind string) string {
	if c.journal == nil {
		return ""
	}
	id, err := c.journal.Begin(ctx, kind)
	if err != nil {
		c.logger.Warn("journal start failed", logging.Error(err))
		return ""
	}
	return id
}

func (c *Collector) finishRun(ctx context.Context, id string, result CycleResult, note string) {
	if c.journal == nil || id == "" {
		return
	}
	if err := c.journal.Finish(ctx, id, result.Fetched, result.Saved, note); err != nil {
		c.logger.Warn("journal finish failed", logging.Error(err))
	}
}
