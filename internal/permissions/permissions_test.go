package permissions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/user/valet/internal/store"
)

func newChecker(t *testing.T) (*Checker, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewChecker(home, st), st, home
}

func TestReadInsideAgentHome(t *testing.T) {
	c, _, home := newChecker(t)
	if !c.CanRead(home) {
		t.Error("agent home itself not readable")
	}
	if !c.CanRead(filepath.Join(home, "notes.txt")) {
		t.Error("file under agent home not readable")
	}
}

func TestReadOutsideDeniedUntilAllowListed(t *testing.T) {
	c, st, _ := newChecker(t)
	outside := t.TempDir()

	if c.CanRead(outside) {
		t.Fatal("outside path readable without allow-list entry")
	}
	if err := c.AssertRead(outside); err == nil {
		t.Error("AssertRead did not fail")
	} else if _, ok := err.(*Error); !ok {
		t.Errorf("error type = %T, want *Error", err)
	}

	if err := st.InsertAllowedPath(outside, store.PermRead); err != nil {
		t.Fatalf("allow path: %v", err)
	}
	if !c.CanRead(outside) {
		t.Error("allow-listed path not readable")
	}
	if !c.CanRead(filepath.Join(outside, "sub", "file.txt")) {
		t.Error("path under allow-listed root not readable")
	}
}

func TestPrefixDoesNotLeakToSiblings(t *testing.T) {
	c, st, _ := newChecker(t)
	base := t.TempDir()
	allowed := filepath.Join(base, "docs")
	if err := os.MkdirAll(allowed, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := st.InsertAllowedPath(allowed, store.PermRead); err != nil {
		t.Fatalf("allow path: %v", err)
	}

	// "docs-secret" shares the string prefix but is not inside "docs".
	if c.CanRead(filepath.Join(base, "docs-secret")) {
		t.Error("sibling with shared prefix readable")
	}
}

func TestWriteOnlyInsideAgentHome(t *testing.T) {
	c, st, home := newChecker(t)
	outside := t.TempDir()
	if err := st.InsertAllowedPath(outside, store.PermRead); err != nil {
		t.Fatalf("allow path: %v", err)
	}

	if !c.CanWrite(filepath.Join(home, "out.txt")) {
		t.Error("write denied inside agent home")
	}
	if c.CanWrite(filepath.Join(outside, "out.txt")) {
		t.Error("write allowed in allow-listed (read-only) path")
	}
}

func TestSymlinkCannotEscape(t *testing.T) {
	c, _, home := newChecker(t)
	secret := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(secret, []byte("x"), 0o644); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	link := filepath.Join(home, "escape")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if c.CanRead(link) {
		t.Error("symlink escaped the agent home")
	}
}

func TestReadableRootsDedupesNested(t *testing.T) {
	c, st, home := newChecker(t)
	outer := t.TempDir()
	inner := filepath.Join(outer, "inner")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := st.InsertAllowedPath(outer, store.PermRead); err != nil {
		t.Fatalf("allow outer: %v", err)
	}
	if err := st.InsertAllowedPath(inner, store.PermRead); err != nil {
		t.Fatalf("allow inner: %v", err)
	}

	roots := c.ReadableRoots()
	for _, r := range roots {
		if r == resolve(inner) {
			t.Error("nested root not removed")
		}
	}
	var sawHome, sawOuter bool
	for _, r := range roots {
		if r == resolve(home) {
			sawHome = true
		}
		if r == resolve(outer) {
			sawOuter = true
		}
	}
	if !sawHome || !sawOuter {
		t.Errorf("roots = %v, missing home or outer", roots)
	}
}
