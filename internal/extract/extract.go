// Package extract turns a tagged git history back into one directory
// per tag, with the commit message as a sidecar file when it carries
// more than the tag name.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/cwilper/mkrepo/internal/git"
	"github.com/cwilper/mkrepo/internal/snapshot"
	"github.com/cwilper/mkrepo/internal/worktree"
)

// Options configures one extraction run.
type Options struct {
	RepoDir string
	OutDir  string
	Tags    []string // empty means every tag in the repository
}

// Run extracts one directory per tag into OutDir. The repository must
// be clean and on a branch before the run starts; that branch is
// restored on every exit path, so the repository is never left checked
// out to a tag.
func Run(opts Options) error {
	repo := git.New(opts.RepoDir)
	if !repo.IsRepo() {
		return fmt.Errorf("%s is not a git repository", opts.RepoDir)
	}

	if dirty, err := repo.HasUncommittedChanges(); err != nil {
		return err
	} else if dirty {
		return fmt.Errorf("repository %s has uncommitted changes", opts.RepoDir)
	}

	originalBranch, err := repo.CurrentBranch()
	if err != nil {
		return err
	}

	state := worktree.NewStateDir(opts.RepoDir)
	if err := state.RemoveStale(); err != nil {
		return err
	}

	tags := opts.Tags
	if len(tags) == 0 {
		if tags, err = repo.Tags(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = extractTags(repo, state, tags, opts.OutDir)
	if rerr := repo.Checkout(originalBranch); rerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to restore branch %s: %w", originalBranch, rerr))
	}
	return err
}

func extractTags(repo *git.Repo, state *worktree.StateDir, tags []string, outDir string) error {
	for _, tag := range tags {
		if err := extractTag(repo, state, tag, outDir); err != nil {
			return fmt.Errorf("tag %s: %w", tag, err)
		}
		log.Infof("extracted %s", tag)
	}
	return nil
}

func extractTag(repo *git.Repo, state *worktree.StateDir, tag, outDir string) error {
	if err := repo.Checkout(tag); err != nil {
		return err
	}

	// Tag names may contain slashes; the tag's own directory must still
	// be fresh, only its parents may pre-exist.
	dst := filepath.Join(outDir, tag)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", tag, err)
	}
	if err := os.Mkdir(dst, 0755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", tag, err)
	}

	// With the state detached the working tree is exactly the tag's
	// contents, so the copy needs no exclusions.
	err := state.WithDetached(func() error {
		return worktree.CopyTree(repo.Dir, dst)
	})
	if err != nil {
		return err
	}

	message, err := repo.CommitMessage(tag)
	if err != nil {
		return err
	}
	if message == tag {
		return nil
	}
	sidecar := dst + snapshot.MessageSuffix
	if err := os.WriteFile(sidecar, []byte(message), 0644); err != nil {
		return fmt.Errorf("failed to write message sidecar: %w", err)
	}
	return nil
}
