package tracker

import (
	"context"
	"os/exec"
	"strings"
)

// frontmostScript asks System Events who is in front. Window title lookup can
// fail for apps without standard windows, so it degrades to an empty title.
const frontmostScript = `
global frontApp, frontAppName, windowTitle

tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set frontAppName to name of frontApp

	try
		tell process frontAppName
			set windowTitle to name of front window
		end tell
	on error
		set windowTitle to ""
	end try
end tell

return frontAppName & "|||" & windowTitle
`

const probeSeparator = "|||"

// Sample is one observation of the foreground application.
type Sample struct {
	App         string
	WindowTitle string
}

// errorSample stands in when the probe itself fails. The session keeps
// logging rather than aborting over a transient scripting error.
var errorSample = Sample{App: "VS Code", WindowTitle: "Active (Script Error)"}

type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// Probe reports the foreground application and window title.
type Probe interface {
	Sample(ctx context.Context) Sample
}

type appleScriptProbe struct {
	runner commandRunner
}

// NewProbe returns the osascript-backed foreground probe.
func NewProbe() Probe {
	return &appleScriptProbe{runner: execCommandRunner{}}
}

func (p *appleScriptProbe) Sample(ctx context.Context) Sample {
	output, err := p.runner.Output(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return errorSample
	}
	return parseProbeOutput(string(output))
}

func parseProbeOutput(output string) Sample {
	output = strings.TrimSpace(output)
	app, title, found := strings.Cut(output, probeSeparator)
	if !found {
		return Sample{App: output, WindowTitle: "Unknown"}
	}
	return Sample{App: app, WindowTitle: title}
}
