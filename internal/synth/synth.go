// Package synth folds an ordered series of snapshot directories into a
// git repository, one tagged commit per snapshot.
package synth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/cwilper/mkrepo/internal/git"
	"github.com/cwilper/mkrepo/internal/snapshot"
	"github.com/cwilper/mkrepo/internal/worktree"
)

// Options configures one synthesis run.
type Options struct {
	SnapshotRoot string // collection of snapshot directories and sidecars
	RepoDir      string // output repository; must not exist before the run
	IncludeDir   string // optional tree merged into every commit
	MainBranch   string
	MarkerFile   string
	GraftPrefix  string // name prefix for disposable graft branches
}

// Synthesizer processes snapshots strictly in order against the single
// shared repository. Two runs against the same output are not
// supported.
type Synthesizer struct {
	opts  Options
	fs    afero.Fs
	repo  *git.Repo
	state *worktree.StateDir
}

// New returns a Synthesizer over the real filesystem.
func New(opts Options) *Synthesizer {
	return &Synthesizer{
		opts:  opts,
		fs:    afero.NewOsFs(),
		repo:  git.New(opts.RepoDir),
		state: worktree.NewStateDir(opts.RepoDir),
	}
}

// Run synthesizes one commit and tag per snapshot. The first failure
// halts the run; commits already created stay in place, so the output
// is always a valid prefix of the full history.
func (s *Synthesizer) Run() error {
	if err := s.state.RemoveStale(); err != nil {
		return err
	}

	names, err := snapshot.Order(s.fs, s.opts.SnapshotRoot)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no snapshots found in %s", s.opts.SnapshotRoot)
	}

	for _, name := range names {
		if err := s.commitSnapshot(name); err != nil {
			return fmt.Errorf("snapshot %s: %w", name, err)
		}
	}
	return nil
}

func (s *Synthesizer) commitSnapshot(name string) error {
	dir := filepath.Join(s.opts.SnapshotRoot, name)
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("no such snapshot directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	meta, err := snapshot.Resolve(s.fs, s.opts.SnapshotRoot, name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(s.opts.RepoDir, ".git")); os.IsNotExist(err) {
		return s.commitInitial(name, dir, meta)
	} else if err != nil {
		return fmt.Errorf("failed to check repository state: %w", err)
	}

	// Position the working tree at the parent-to-be. Linear commits
	// are already at the main line's tip; a graft checks out a
	// disposable branch at the named ref.
	graftBranch := ""
	if meta.Branch != "" {
		if !s.repo.RefExists(meta.Branch) {
			return fmt.Errorf("graft ref %q does not exist", meta.Branch)
		}
		graftBranch = s.opts.GraftPrefix + uuid.NewString()
		log.Debugf("grafting onto %s via %s", meta.Branch, graftBranch)
		if err := s.repo.CreateBranchAt(graftBranch, meta.Branch); err != nil {
			return err
		}
		if err := s.repo.Checkout(graftBranch); err != nil {
			return err
		}
	}

	if err := s.replaceWorkTree(dir); err != nil {
		return err
	}
	if err := s.record(name, meta); err != nil {
		return err
	}

	if graftBranch != "" {
		if err := s.repo.Checkout(s.opts.MainBranch); err != nil {
			return err
		}
		if err := s.repo.DeleteBranch(graftBranch); err != nil {
			return err
		}
	}

	log.Infof("committed %s", name)
	return nil
}

// commitInitial creates the repository itself along with the root
// commit. A branch pointer on the first snapshot can never resolve in a
// freshly initialized repository and fails like any missing graft ref.
func (s *Synthesizer) commitInitial(name, dir string, meta snapshot.Metadata) error {
	if err := os.MkdirAll(s.opts.RepoDir, 0755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}
	if err := worktree.Materialize(s.opts.RepoDir, dir, s.opts.IncludeDir, s.opts.MarkerFile); err != nil {
		return err
	}
	if err := s.repo.Init(s.opts.MainBranch); err != nil {
		return err
	}
	if meta.Branch != "" && !s.repo.RefExists(meta.Branch) {
		return fmt.Errorf("graft ref %q does not exist", meta.Branch)
	}
	if err := s.record(name, meta); err != nil {
		return err
	}
	log.Infof("committed %s (root)", name)
	return nil
}

// replaceWorkTree swaps the working tree for freshly materialized
// snapshot contents while the repository state sits detached outside
// the tree.
func (s *Synthesizer) replaceWorkTree(dir string) error {
	return s.state.WithDetached(func() error {
		if err := os.RemoveAll(s.opts.RepoDir); err != nil {
			return fmt.Errorf("failed to clear working tree: %w", err)
		}
		if err := os.MkdirAll(s.opts.RepoDir, 0755); err != nil {
			return fmt.Errorf("failed to recreate working tree: %w", err)
		}
		return worktree.Materialize(s.opts.RepoDir, dir, s.opts.IncludeDir, s.opts.MarkerFile)
	})
}

// record stages the whole tree, commits with the resolved metadata and
// tags the commit with the snapshot name. A tag collision is surfaced
// by git itself.
func (s *Synthesizer) record(name string, meta snapshot.Metadata) error {
	if err := s.repo.AddAll(); err != nil {
		return err
	}
	err := s.repo.Commit(git.CommitOptions{
		Message:       meta.Message,
		Author:        meta.Author,
		Committer:     meta.Committer,
		AuthorDate:    meta.AuthorDate,
		CommitterDate: meta.CommitterDate,
	})
	if err != nil {
		return err
	}
	return s.repo.Tag(name)
}
