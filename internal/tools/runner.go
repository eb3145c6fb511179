package tools

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

const (
	defaultRunTimeout     = 5 * time.Second
	defaultMaxOutputBytes = 100_000
)

// CommandResult captures one external command run. Timeouts and output caps
// are reported as flags, never as errors.
type CommandResult struct {
	Command   string
	Args      []string
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Truncated bool
}

// CommandOptions bound a command run.
type CommandOptions struct {
	Timeout        time.Duration
	MaxOutputBytes int
}

// capWriter buffers up to limit bytes, then kills the child process and
// drops the rest.
type capWriter struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
	kill      func()
}

func (w *capWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.truncated {
		return len(p), nil
	}
	remaining := w.limit - len(w.buf)
	if len(p) > remaining {
		w.buf = append(w.buf, p[:remaining]...)
		w.truncated = true
		w.kill()
		return len(p), nil
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *capWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}

func (w *capWriter) wasTruncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}

// RunCommand executes a binary without a shell under a wall-clock timeout
// and per-stream output caps. The child is killed on timeout or cap
// overflow; both conditions surface as result flags.
func RunCommand(ctx context.Context, command string, args []string, opts CommandOptions) (*CommandResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	maxBytes := opts.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxOutputBytes
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)

	var killMu sync.Mutex
	kill := func() {
		killMu.Lock()
		defer killMu.Unlock()
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
	stdout := &capWriter{limit: maxBytes, kill: kill}
	stderr := &capWriter{limit: maxBytes, kill: kill}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	result := &CommandResult{
		Command:   command,
		Args:      args,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		TimedOut:  errors.Is(ctx.Err(), context.DeadlineExceeded),
		Truncated: stdout.wasTruncated() || stderr.wasTruncated(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case result.TimedOut || result.Truncated:
			result.ExitCode = -1
		default:
			return nil, err
		}
	}
	return result, nil
}
