// Package testutil builds throwaway snapshot collections and git
// repositories for tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed, skipping")
	}
}

// SetupIdentity points git at a scratch global config carrying a fixed
// commit identity, so commits succeed regardless of the host's git
// setup. Commands under test strip GIT_AUTHOR_*/GIT_COMMITTER_* from
// their environment, which is why the identity goes through config.
func SetupIdentity(t *testing.T) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "gitconfig")
	content := "[user]\n\tname = Test User\n\temail = test@example.com\n"
	if err := os.WriteFile(cfg, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write git config: %v", err)
	}
	t.Setenv("GIT_CONFIG_GLOBAL", cfg)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
}

// Git runs a git command in dir and returns its trimmed stdout,
// failing the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %s failed: %v", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output))
}

// Collection is a snapshot collection rooted in a temp directory.
type Collection struct {
	Root string
	T    *testing.T
}

// NewCollection creates an empty snapshot collection.
func NewCollection(t *testing.T) *Collection {
	t.Helper()
	return &Collection{Root: t.TempDir(), T: t}
}

// AddSnapshot creates a snapshot directory with the given files, keyed
// by path relative to the snapshot root.
func (c *Collection) AddSnapshot(name string, files map[string]string) {
	c.T.Helper()
	dir := filepath.Join(c.Root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.T.Fatalf("failed to create snapshot %s: %v", name, err)
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			c.T.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			c.T.Fatalf("failed to write %s: %v", rel, err)
		}
	}
}

// AddDir creates an (empty) directory inside a snapshot.
func (c *Collection) AddDir(name, rel string) {
	c.T.Helper()
	if err := os.MkdirAll(filepath.Join(c.Root, name, rel), 0755); err != nil {
		c.T.Fatalf("failed to create directory %s: %v", rel, err)
	}
}

// AddSidecar writes a sidecar file (e.g. "a.txt", "author") at the
// collection root.
func (c *Collection) AddSidecar(name, content string) {
	c.T.Helper()
	if err := os.WriteFile(filepath.Join(c.Root, name), []byte(content), 0644); err != nil {
		c.T.Fatalf("failed to write sidecar %s: %v", name, err)
	}
}
