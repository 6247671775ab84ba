package collector

import (
	"context"
	"fmt"

	"lifelog/internal/journal"
	"lifelog/internal/localtime"
	"lifelog/internal/logging"
	"lifelog/internal/reconcile"
	"lifelog/internal/services/lastfm"
)

// Rescue recovers plays from a fixed past window after a missed collection
// session. It runs one deep fetch against the closed window from
// configuration, skipping the in-progress entry since a play without a
// finished timestamp cannot belong to a past window. Recovered rows are
// appended with the usual dedup, so rerunning a rescue is safe.
func (c *Collector) Rescue(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	start, end, err := c.cfg.RescueWindow()
	if err != nil {
		return result, fmt.Errorf("rescue window: %w", err)
	}
	window := reconcile.Backfill(start, end)

	fetchLimit := c.cfg.Rescue.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = 100
	}

	c.logger.Info("rescue started",
		logging.String("window_start", localtime.Format(start)),
		logging.String("window_end", localtime.Format(end)),
		logging.Int("fetch_limit", fetchLimit),
	)

	runID := c.beginRun(ctx, journal.KindRescue)

	batch, err := c.history.RecentTracks(ctx, fetchLimit)
	if err != nil {
		c.finishRun(ctx, runID, result, "failed: "+err.Error())
		return result, fmt.Errorf("fetch recent tracks: %w", err)
	}

	dated := make([]lastfm.Scrobble, 0, len(batch))
	for _, scrobble := range batch {
		if scrobble.NowPlaying || scrobble.PlayedAt == "" {
			continue
		}
		dated = append(dated, scrobble)
	}
	result.Fetched = len(dated)

	existing, err := c.loadExisting()
	if err != nil {
		c.logger.Warn("dataset index unreadable, rescuing without dedup", logging.Error(err))
	}

	normalizer := localtime.New(c.cfg.Collector.TimezoneOffsetHours, c.now)
	enricher := reconcile.NewEnricher(c.catalog, c.history, c.logger)
	engine := reconcile.NewEngine(normalizer, window, existing, enricher, c.logger)

	events := engine.Reconcile(ctx, toRawEvents(dated))
	if len(events) > 0 {
		rows := make([][]string, 0, len(events))
		for _, event := range events {
			rows = append(rows, event.Row())
		}
		if err := c.appendMusicRows(rows); err != nil {
			c.finishRun(ctx, runID, result, "failed: "+err.Error())
			return result, err
		}
		result.Saved = len(rows)
	}

	c.logger.Info("rescue complete",
		logging.Int("fetched", result.Fetched),
		logging.Int("saved", result.Saved),
	)
	if notifyErr := c.notifier.NotifyRescueComplete(ctx, result.Saved); notifyErr != nil {
		c.logger.Warn("rescue notification failed", logging.Error(notifyErr))
	}

	c.finishRun(ctx, runID, result, "completed")
	return result, nil
}
