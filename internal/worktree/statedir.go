package worktree

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const gitDirName = ".git"

// StateDir owns a repository's .git directory as a movable unit. While
// detached, the working tree can be discarded and rebuilt without
// touching history; the .git directory is the single source of truth
// for all prior commits and tags.
type StateDir struct {
	repoDir string
	stash   string
}

// NewStateDir returns the handle for the repository at repoDir. The
// stash location is fixed, derived from the repository path, so a
// leftover stash from an aborted run is always findable.
func NewStateDir(repoDir string) *StateDir {
	stash := filepath.Join(filepath.Dir(repoDir), "."+filepath.Base(repoDir)+".gitstate")
	return &StateDir{repoDir: repoDir, stash: stash}
}

// StashPath returns where the .git directory lives while detached.
func (s *StateDir) StashPath() string {
	return s.stash
}

// RemoveStale deletes a stash left behind by a previously aborted run.
// Called once at startup, before any repository mutation.
func (s *StateDir) RemoveStale() error {
	if _, err := os.Stat(s.stash); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to check for stale state at %s: %w", s.stash, err)
	}
	log.Warnf("removing stale repository state from a prior aborted run: %s", s.stash)
	if err := os.RemoveAll(s.stash); err != nil {
		return fmt.Errorf("failed to remove stale state: %w", err)
	}
	return nil
}

// Detach moves the .git directory out of the working tree.
func (s *StateDir) Detach() error {
	if err := os.Rename(filepath.Join(s.repoDir, gitDirName), s.stash); err != nil {
		return fmt.Errorf("failed to detach repository state: %w", err)
	}
	return nil
}

// Attach moves the .git directory back into the working tree.
func (s *StateDir) Attach() error {
	if err := os.Rename(s.stash, filepath.Join(s.repoDir, gitDirName)); err != nil {
		return fmt.Errorf("failed to reattach repository state: %w", err)
	}
	return nil
}

// WithDetached runs fn with the repository state detached and
// guarantees reattachment on every exit path. The repository directory
// itself may be removed and recreated inside fn; the stash lives
// outside it. A reattach failure is reported alongside fn's error and
// names the stash path, so an operator can recover by hand.
func (s *StateDir) WithDetached(fn func() error) (err error) {
	if err := s.Detach(); err != nil {
		return err
	}
	defer func() {
		if aerr := s.Attach(); aerr != nil {
			err = errors.Join(err, fmt.Errorf("repository state left at %s: %w", s.stash, aerr))
		}
	}()
	return fn()
}
