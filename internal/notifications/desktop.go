package notifications

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// commandRunner abstracts osascript execution for tests.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// desktopService shows a macOS banner via osascript.
type desktopService struct {
	runner commandRunner
}

func newDesktopService() *desktopService {
	return &desktopService{runner: execCommandRunner{}}
}

func (d *desktopService) NotifySessionComplete(ctx context.Context, hours int) error {
	p := sessionCompletePayload(hours)
	return d.display(ctx, p.message, p.title)
}

func (d *desktopService) NotifyRescueComplete(ctx context.Context, saved int) error {
	p := rescueCompletePayload(saved)
	return d.display(ctx, p.message, p.title)
}

func (d *desktopService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	p := errorPayload(err, contextLabel)
	return d.display(ctx, p.message, p.title)
}

func (d *desktopService) TestNotification(ctx context.Context) error {
	p := testPayload()
	return d.display(ctx, p.message, p.title)
}

func (d *desktopService) display(ctx context.Context, message, title string) error {
	script := fmt.Sprintf("display notification %q with title %q sound name \"Glass\"",
		sanitize(message), sanitize(title))
	if err := d.runner.Run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("display notification: %w", err)
	}
	return nil
}

// sanitize strips characters that would break out of the AppleScript string.
func sanitize(value string) string {
	value = strings.ReplaceAll(value, `"`, "'")
	value = strings.ReplaceAll(value, "\\", "")
	return value
}
