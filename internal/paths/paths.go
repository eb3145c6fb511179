// Package paths centralizes the on-disk layout under ~/.valet.
package paths

import (
	"os"
	"path/filepath"
)

const dirName = ".valet"

// Dir returns the valet data directory, creating it if needed.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, dirName)
	os.MkdirAll(dir, 0o755)
	return dir
}

// DB returns the SQLite database path.
func DB() string { return filepath.Join(Dir(), "valet.db") }

// Socket returns the IPC Unix socket path.
func Socket() string { return filepath.Join(Dir(), "valet.sock") }

// PID returns the daemon PID file path.
func PID() string { return filepath.Join(Dir(), "valet.pid") }

// Log returns the detached daemon's log file path.
func Log() string { return filepath.Join(Dir(), "valet.log") }

// Config returns the TOML config file path.
func Config() string { return filepath.Join(Dir(), "config.toml") }

// ExpandTilde replaces a leading ~ with the user's home directory.
func ExpandTilde(p string) string {
	if p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return home
	}
	if len(p) > 1 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
