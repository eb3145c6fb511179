package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AppleScript output uses ASCII record/unit separators so titles containing
// commas or newlines survive the round trip.
const (
	osascriptPath        = "/usr/bin/osascript"
	osascriptTimeout     = 20 * time.Second
	osascriptMaxOutput   = 500_000
	recordSep            = "\x1e"
	fieldSep             = "\x1f"
	recordSepCharacterID = 30
	fieldSepCharacterID  = 31
)

// runOsascript flattens script lines into -e flags, appends argv after "--"
// and runs osascript under the shared timeout and output cap. Non-zero exit
// and timeouts are surfaced as errors with whatever the script printed.
func runOsascript(ctx context.Context, scriptLines []string, argv []string, failureMessage string) (*CommandResult, error) {
	args := make([]string, 0, len(scriptLines)*2+len(argv)+1)
	for _, line := range scriptLines {
		args = append(args, "-e", line)
	}
	if len(argv) > 0 {
		args = append(args, "--")
		args = append(args, argv...)
	}

	result, err := RunCommand(ctx, osascriptPath, args, CommandOptions{
		Timeout:        osascriptTimeout,
		MaxOutputBytes: osascriptMaxOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("run osascript: %w", err)
	}
	if result.TimedOut {
		return nil, fmt.Errorf("osascript timed out after %s", osascriptTimeout)
	}
	if result.ExitCode != 0 {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(result.Stdout)
		}
		if msg == "" {
			msg = failureMessage
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return result, nil
}

func splitRecords(output string) []string {
	var records []string
	for _, rec := range strings.Split(output, recordSep) {
		if rec != "" {
			records = append(records, rec)
		}
	}
	return records
}
