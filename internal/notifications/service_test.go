package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lifelog/internal/config"
)

func TestNewServiceDefaultsToNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	cfg.Notifications.Desktop = false

	svc := NewService(&cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop notification returned error: %v", err)
	}
}

func TestNtfySendsHeadersAndBody(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}
	var got captured

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := &ntfyService{endpoint: server.URL, client: server.Client()}
	if err := svc.NotifySessionComplete(context.Background(), 3); err != nil {
		t.Fatalf("NotifySessionComplete returned error: %v", err)
	}

	if got.title != "lifelog - Session Complete" {
		t.Errorf("unexpected title %q", got.title)
	}
	if got.tags != "lifelog,tracker,completed" {
		t.Errorf("unexpected tags %q", got.tags)
	}
	if got.priority != "high" {
		t.Errorf("unexpected priority %q", got.priority)
	}
	if !strings.Contains(got.body, "3 hour") {
		t.Errorf("unexpected body %q", got.body)
	}
}

func TestNtfyErrorPayloadIncludesContext(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	}))
	defer server.Close()

	svc := &ntfyService{endpoint: server.URL, client: server.Client()}
	err := svc.NotifyError(context.Background(), errors.New("token expired"), "spotify lookup")
	if err != nil {
		t.Fatalf("NotifyError returned error: %v", err)
	}
	if body != "Error with spotify lookup: token expired" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestNtfyReportsServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	svc := &ntfyService{endpoint: server.URL, client: server.Client()}
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error should mention status code: %v", err)
	}
}

type stubRunner struct {
	calls [][]string
	err   error
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) error {
	s.calls = append(s.calls, append([]string{name}, args...))
	return s.err
}

func TestDesktopBuildsAppleScript(t *testing.T) {
	runner := &stubRunner{}
	svc := &desktopService{runner: runner}

	if err := svc.NotifyRescueComplete(context.Background(), 12); err != nil {
		t.Fatalf("NotifyRescueComplete returned error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 osascript call, got %d", len(runner.calls))
	}
	call := runner.calls[0]
	if call[0] != "osascript" || call[1] != "-e" {
		t.Fatalf("unexpected command: %v", call)
	}
	script := call[2]
	if !strings.Contains(script, "display notification") {
		t.Errorf("script missing display notification: %q", script)
	}
	if !strings.Contains(script, "12 tracks") {
		t.Errorf("script missing message: %q", script)
	}
	if !strings.Contains(script, "lifelog - Rescue Complete") {
		t.Errorf("script missing title: %q", script)
	}
}

func TestDesktopSanitizesQuotes(t *testing.T) {
	runner := &stubRunner{}
	svc := &desktopService{runner: runner}

	err := svc.NotifyError(context.Background(), errors.New(`bad "input" value`), "")
	if err != nil {
		t.Fatalf("NotifyError returned error: %v", err)
	}
	script := runner.calls[0][2]
	if strings.Contains(script, `\"input\"`) || strings.Contains(script, `"input"`) {
		t.Errorf("quotes not sanitized: %q", script)
	}
}

func TestMultiServiceReturnsFirstError(t *testing.T) {
	failing := &stubRunner{err: errors.New("osascript missing")}
	good := &stubRunner{}

	svc := multiService{
		&desktopService{runner: failing},
		&desktopService{runner: good},
	}
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected first error to propagate")
	}
	if len(good.calls) != 1 {
		t.Fatalf("later services should still run, got %d calls", len(good.calls))
	}
}
