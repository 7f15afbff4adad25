package git

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Identity is a commit identity split into its name and email parts.
type Identity struct {
	Name  string
	Email string
}

// ParseIdentity splits a "Display Name <email>" line into its parts.
// The name is everything before the trailing bracketed email.
func ParseIdentity(s string) (Identity, error) {
	open := strings.LastIndex(s, "<")
	end := strings.LastIndex(s, ">")
	if open < 0 || end < open {
		return Identity{}, fmt.Errorf("invalid identity %q: expected \"Display Name <email>\"", s)
	}
	return Identity{
		Name:  strings.TrimSpace(s[:open]),
		Email: s[open+1 : end],
	}, nil
}

// CommitOptions carries the metadata for one commit. Zero-valued fields
// leave the corresponding git default in effect.
type CommitOptions struct {
	Message       string
	Author        string    // verbatim "Name <email>", passed to --author
	Committer     *Identity // nil leaves committer to git config
	AuthorDate    string
	CommitterDate string
}

// identityVars are the environment variables git reads for commit
// identity and timestamps. They are stripped from every commit's
// environment so one commit's metadata can never leak into the next;
// only the values in CommitOptions are re-added.
var identityVars = []string{
	"GIT_AUTHOR_NAME",
	"GIT_AUTHOR_EMAIL",
	"GIT_AUTHOR_DATE",
	"GIT_COMMITTER_NAME",
	"GIT_COMMITTER_EMAIL",
	"GIT_COMMITTER_DATE",
}

func commitEnv(opts CommitOptions) []string {
	env := make([]string, 0, len(os.Environ())+4)
	for _, kv := range os.Environ() {
		if isIdentityVar(kv) {
			continue
		}
		env = append(env, kv)
	}
	if opts.Committer != nil {
		env = append(env,
			"GIT_COMMITTER_NAME="+opts.Committer.Name,
			"GIT_COMMITTER_EMAIL="+opts.Committer.Email)
	}
	if opts.AuthorDate != "" {
		env = append(env, "GIT_AUTHOR_DATE="+opts.AuthorDate)
	}
	if opts.CommitterDate != "" {
		env = append(env, "GIT_COMMITTER_DATE="+opts.CommitterDate)
	}
	return env
}

func isIdentityVar(kv string) bool {
	for _, name := range identityVars {
		if strings.HasPrefix(kv, name+"=") {
			return true
		}
	}
	return false
}

// Commit records the staged tree as a new commit on HEAD. An unchanged
// tree still produces a commit: every snapshot maps to exactly one.
func (r *Repo) Commit(opts CommitOptions) error {
	args := []string{"commit", "--allow-empty", "--allow-empty-message", "-m", opts.Message}
	if opts.Author != "" {
		args = append(args, "--author="+opts.Author)
	}
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = commitEnv(opts)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git commit failed: %s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}
