// Package permissions gates filesystem access for tools: reads are allowed
// inside the agent home and any allow-listed root, writes only inside the
// agent home.
package permissions

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/valet/internal/store"
)

// Error describes a denied filesystem operation.
type Error struct {
	Path      string
	Operation string
}

func (e *Error) Error() string {
	if e.Operation == "write" {
		return fmt.Sprintf("write access denied: %s is outside the agent home", e.Path)
	}
	return fmt.Sprintf("read access denied: %s is not in the agent home or an allow-listed path", e.Path)
}

// Checker answers read/write questions against the agent home directory and
// the persisted allow-list.
type Checker struct {
	home  string
	store *store.Store
}

// NewChecker creates a Checker rooted at home, consulting st for the allow-list.
func NewChecker(home string, st *store.Store) *Checker {
	return &Checker{home: home, store: st}
}

// AgentHome returns the agent's private data directory.
func (c *Checker) AgentHome() string { return c.home }

// resolve normalizes a path and follows symlinks where the target (or the
// nearest existing ancestor) exists, so a symlink cannot escape the sandbox.
func resolve(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	// Walk up to the nearest existing ancestor and resolve that.
	dir, rest := abs, ""
	for dir != "/" && dir != "." {
		parent := filepath.Dir(dir)
		rest = filepath.Join(filepath.Base(dir), rest)
		if _, err := os.Stat(parent); err == nil {
			if real, err := filepath.EvalSymlinks(parent); err == nil {
				return filepath.Join(real, rest)
			}
			break
		}
		dir = parent
	}
	return abs
}

func contains(root, p string) bool {
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

// CanRead reports whether p lies inside the agent home or an allow-listed root.
func (c *Checker) CanRead(p string) bool {
	resolved := resolve(p)
	if contains(resolve(c.home), resolved) {
		return true
	}
	paths, err := c.store.AllowedPaths()
	if err != nil {
		slog.Warn("allow-list lookup failed", "error", err)
		return false
	}
	for _, entry := range paths {
		if contains(resolve(entry.Path), resolved) {
			return true
		}
	}
	return false
}

// CanWrite reports whether p lies inside the agent home.
func (c *Checker) CanWrite(p string) bool {
	return contains(resolve(c.home), resolve(p))
}

// AssertRead returns a permission error unless p is readable.
func (c *Checker) AssertRead(p string) error {
	if c.CanRead(p) {
		return nil
	}
	resolved := resolve(p)
	slog.Warn("read permission denied", "path", resolved)
	return &Error{Path: resolved, Operation: "read"}
}

// AssertWrite returns a permission error unless p is writable.
func (c *Checker) AssertWrite(p string) error {
	if c.CanWrite(p) {
		return nil
	}
	resolved := resolve(p)
	slog.Warn("write permission denied", "path", resolved)
	return &Error{Path: resolved, Operation: "write"}
}

// ReadableRoots returns the agent home plus allow-listed roots, deduplicated
// and with nested roots removed. Used by the search tool to bound traversal.
func (c *Checker) ReadableRoots() []string {
	seen := map[string]bool{}
	var all []string
	for _, p := range append([]string{c.home}, c.allowListed()...) {
		r := resolve(p)
		if !seen[r] {
			seen[r] = true
			all = append(all, r)
		}
	}
	var roots []string
	for _, r := range all {
		nested := false
		for _, other := range all {
			if r != other && contains(other, r) {
				nested = true
				break
			}
		}
		if !nested {
			roots = append(roots, r)
		}
	}
	return roots
}

func (c *Checker) allowListed() []string {
	paths, err := c.store.AllowedPaths()
	if err != nil {
		slog.Warn("allow-list lookup failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Path)
	}
	return out
}
