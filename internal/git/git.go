// Package git drives the git binary for one repository. It is a thin
// command layer: history storage, diffing and merging stay inside git.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Repo is a handle on one git repository's working-tree directory.
type Repo struct {
	Dir string
}

// New returns a handle for the repository at dir. The directory does not
// need to exist yet; Init creates it as a repository.
func New(dir string) *Repo {
	return &Repo{Dir: dir}
}

// run executes a git command in the repository directory, surfacing
// git's own output in the error.
func (r *Repo) run(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s failed: %s: %w", args[0], strings.TrimSpace(string(output)), err)
	}
	return nil
}

// output executes a git command and returns its stdout, carrying
// git's stderr diagnostic into the error.
func (r *Repo) output(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s failed: %s: %w", args[0], strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return string(out), nil
}

// IsRepo reports whether the directory is inside a git repository.
func (r *Repo) IsRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = r.Dir
	return cmd.Run() == nil
}

// Init creates a fresh repository with the given initial branch.
func (r *Repo) Init(branch string) error {
	return r.run("init", "--initial-branch", branch)
}

// AddAll stages every addition, modification and deletion in the
// working tree relative to the index.
func (r *Repo) AddAll() error {
	return r.run("add", "-A", ".")
}

// Tag creates a lightweight tag at HEAD.
func (r *Repo) Tag(name string) error {
	return r.run("tag", name)
}

// Checkout force-switches the working tree to the given ref.
func (r *Repo) Checkout(ref string) error {
	return r.run("checkout", "-f", ref)
}

// CreateBranchAt creates a branch pointing at an existing ref without
// switching to it.
func (r *Repo) CreateBranchAt(name, ref string) error {
	return r.run("branch", name, ref)
}

// DeleteBranch removes a branch regardless of its merge state.
func (r *Repo) DeleteBranch(name string) error {
	return r.run("branch", "-D", name)
}

// RefExists reports whether a ref (branch, tag or commit) resolves.
func (r *Repo) RefExists(ref string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", ref)
	cmd.Dir = r.Dir
	return cmd.Run() == nil
}

// CurrentBranch returns the checked-out branch name. It fails when HEAD
// is detached, since there is then no branch to return to later.
func (r *Repo) CurrentBranch() (string, error) {
	out, err := r.output("symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch (detached HEAD?): %w", err)
	}
	return strings.TrimSpace(out), nil
}

// HasUncommittedChanges reports whether the working tree or index
// differs from HEAD.
func (r *Repo) HasUncommittedChanges() (bool, error) {
	out, err := r.output("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("failed to check git status: %w", err)
	}
	return len(strings.TrimSpace(out)) > 0, nil
}

// Tags lists every tag name in the repository.
func (r *Repo) Tags() ([]string, error) {
	out, err := r.output("tag", "--list")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// CommitMessage returns the full commit message of a ref, minus the one
// trailing newline the raw message body carries.
func (r *Repo) CommitMessage(ref string) (string, error) {
	out, err := r.output("log", "-1", "--pretty=format:%B", ref)
	if err != nil {
		return "", fmt.Errorf("failed to read commit message of %s: %w", ref, err)
	}
	return strings.TrimSuffix(out, "\n"), nil
}
