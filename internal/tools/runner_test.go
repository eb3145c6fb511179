package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCommandCapturesOutput(t *testing.T) {
	result, err := RunCommand(context.Background(), "sh", []string{"-c", "echo out; echo err >&2"}, CommandOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "out" {
		t.Errorf("stdout = %q", result.Stdout)
	}
	if strings.TrimSpace(result.Stderr) != "err" {
		t.Errorf("stderr = %q", result.Stderr)
	}
	if result.TimedOut || result.Truncated {
		t.Errorf("flags set unexpectedly: %+v", result)
	}
}

func TestRunCommandNonZeroExitIsNotAnError(t *testing.T) {
	result, err := RunCommand(context.Background(), "sh", []string{"-c", "exit 3"}, CommandOptions{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestRunCommandTimeout(t *testing.T) {
	start := time.Now()
	result, err := RunCommand(context.Background(), "sh", []string{"-c", "sleep 5"}, CommandOptions{Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.TimedOut {
		t.Error("timedOut flag not set")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("command was not killed promptly (%v)", elapsed)
	}
}

func TestRunCommandOutputCap(t *testing.T) {
	result, err := RunCommand(context.Background(), "sh",
		[]string{"-c", "yes | head -c 100000"}, CommandOptions{MaxOutputBytes: 64})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Truncated {
		t.Error("truncated flag not set")
	}
	if len(result.Stdout) > 64 {
		t.Errorf("stdout length %d exceeds cap", len(result.Stdout))
	}
}

func TestRunCommandMissingBinary(t *testing.T) {
	if _, err := RunCommand(context.Background(), "/definitely/not/a/binary", nil, CommandOptions{}); err == nil {
		t.Error("start failure did not return an error")
	}
}
