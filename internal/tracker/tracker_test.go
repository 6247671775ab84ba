package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lifelog/internal/dataset"
	"lifelog/internal/logging"
)

type fakeProbe struct {
	sample Sample
}

func (f fakeProbe) Sample(context.Context) Sample { return f.sample }

type spyNotifier struct {
	sessionHours []int
}

func (s *spyNotifier) NotifySessionComplete(_ context.Context, hours int) error {
	s.sessionHours = append(s.sessionHours, hours)
	return nil
}

func (s *spyNotifier) NotifyRescueComplete(context.Context, int) error  { return nil }
func (s *spyNotifier) NotifyError(context.Context, error, string) error { return nil }
func (s *spyNotifier) TestNotification(context.Context) error           { return nil }

func newTestTracker(t *testing.T, probe Probe, notifier *spyNotifier, limit time.Duration) *Tracker {
	t.Helper()
	return &Tracker{
		logPath:      filepath.Join(t.TempDir(), "mac_activity_log.csv"),
		pollInterval: 5 * time.Millisecond,
		sessionLimit: limit,
		durationHrs:  3,
		probe:        probe,
		notifier:     notifier,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
}

func TestRunCompletesSession(t *testing.T) {
	notifier := &spyNotifier{}
	probe := fakeProbe{sample: Sample{App: "Safari", WindowTitle: "Docs"}}
	tracker := newTestTracker(t, probe, notifier, 30*time.Millisecond)

	result, err := tracker.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Interrupted {
		t.Error("completed session reported as interrupted")
	}
	if result.Samples == 0 {
		t.Fatal("expected at least one sample")
	}
	if len(notifier.sessionHours) != 1 || notifier.sessionHours[0] != 3 {
		t.Errorf("expected one completion notification for 3 hours, got %v", notifier.sessionHours)
	}

	rows, err := dataset.ReadRows(tracker.logPath)
	if err != nil {
		t.Fatalf("ReadRows returned error: %v", err)
	}
	if len(rows) != result.Samples {
		t.Fatalf("expected %d rows, got %d", result.Samples, len(rows))
	}
	first := rows[0]
	if len(first) != 3 || first[1] != "Safari" || first[2] != "Docs" {
		t.Errorf("unexpected row: %v", first)
	}
	if _, parseErr := time.Parse("2006-01-02 15:04:05", first[0]); parseErr != nil {
		t.Errorf("timestamp not in storage format: %q", first[0])
	}
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	notifier := &spyNotifier{}
	probe := fakeProbe{sample: Sample{App: "Terminal", WindowTitle: "zsh"}}
	tracker := newTestTracker(t, probe, notifier, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	result, err := tracker.Run(ctx)
	if err != nil {
		t.Fatalf("cancelled Run returned error: %v", err)
	}
	if !result.Interrupted {
		t.Error("cancelled session should report interrupted")
	}
	if len(notifier.sessionHours) != 0 {
		t.Error("interrupted session must not send the completion notification")
	}
}

func TestRunSkipsEmptyApp(t *testing.T) {
	tracker := newTestTracker(t, fakeProbe{}, &spyNotifier{}, 20*time.Millisecond)

	result, err := tracker.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Samples != 0 {
		t.Errorf("empty app samples should be skipped, got %d", result.Samples)
	}
	rows, err := dataset.ReadRows(tracker.logPath)
	if err != nil {
		t.Fatalf("ReadRows returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

type stubRunner struct {
	output []byte
	err    error
	calls  int
}

func (s *stubRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.calls++
	return s.output, s.err
}

func TestProbeParsesSeparator(t *testing.T) {
	runner := &stubRunner{output: []byte("Safari|||GitHub - pull requests\n")}
	probe := &appleScriptProbe{runner: runner}

	sample := probe.Sample(context.Background())
	if sample.App != "Safari" {
		t.Errorf("unexpected app %q", sample.App)
	}
	if sample.WindowTitle != "GitHub - pull requests" {
		t.Errorf("unexpected title %q", sample.WindowTitle)
	}
}

func TestProbeMissingSeparator(t *testing.T) {
	runner := &stubRunner{output: []byte("Finder\n")}
	probe := &appleScriptProbe{runner: runner}

	sample := probe.Sample(context.Background())
	if sample.App != "Finder" || sample.WindowTitle != "Unknown" {
		t.Errorf("unexpected sample: %+v", sample)
	}
}

func TestProbeFallsBackOnError(t *testing.T) {
	runner := &stubRunner{err: errors.New("osascript not found")}
	probe := &appleScriptProbe{runner: runner}

	sample := probe.Sample(context.Background())
	if sample != errorSample {
		t.Errorf("expected error fallback sample, got %+v", sample)
	}
}
