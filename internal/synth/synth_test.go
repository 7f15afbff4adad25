package synth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwilper/mkrepo/internal/testutil"
)

func newSynthesizer(t *testing.T, c *testutil.Collection, includeDir string) (*Synthesizer, string) {
	t.Helper()
	testutil.RequireGit(t)
	testutil.SetupIdentity(t)

	repoDir := filepath.Join(t.TempDir(), "repo")
	s := New(Options{
		SnapshotRoot: c.Root,
		RepoDir:      repoDir,
		IncludeDir:   includeDir,
		MainBranch:   "main",
		MarkerFile:   ".gitkeep",
		GraftPrefix:  "mkrepo/graft-",
	})
	return s, repoDir
}

func openRepo(t *testing.T, repoDir string) *gogit.Repository {
	t.Helper()
	r, err := gogit.PlainOpen(repoDir)
	require.NoError(t, err)
	return r
}

func tagCommit(t *testing.T, r *gogit.Repository, name string) *object.Commit {
	t.Helper()
	ref, err := r.Tag(name)
	require.NoError(t, err, "tag %s", name)
	commit, err := r.CommitObject(ref.Hash())
	require.NoError(t, err)
	return commit
}

func headCommit(t *testing.T, r *gogit.Repository) *object.Commit {
	t.Helper()
	head, err := r.Head()
	require.NoError(t, err)
	commit, err := r.CommitObject(head.Hash())
	require.NoError(t, err)
	return commit
}

func branchNames(t *testing.T, r *gogit.Repository) []string {
	t.Helper()
	iter, err := r.Branches()
	require.NoError(t, err)
	var names []string
	require.NoError(t, iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	}))
	return names
}

func TestLinearHistory(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})
	c.AddSnapshot("b", map[string]string{"file.txt": "b\n"})
	c.AddSnapshot("c", map[string]string{"file.txt": "c\n"})

	s, repoDir := newSynthesizer(t, c, "")
	require.NoError(t, s.Run())

	r := openRepo(t, repoDir)
	a := tagCommit(t, r, "a")
	b := tagCommit(t, r, "b")
	cc := tagCommit(t, r, "c")

	assert.Zero(t, a.NumParents())
	require.Equal(t, 1, b.NumParents())
	assert.Equal(t, a.Hash, b.ParentHashes[0])
	require.Equal(t, 1, cc.NumParents())
	assert.Equal(t, b.Hash, cc.ParentHashes[0])

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, "main", head.Name().Short())
	assert.Equal(t, cc.Hash, head.Hash())

	// Default message is the snapshot name.
	assert.Equal(t, "a", strings.TrimSpace(a.Message))
}

func TestGraftedCommit(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})
	c.AddSnapshot("b", map[string]string{"file.txt": "b\n"})
	c.AddSnapshot("c", map[string]string{"file.txt": "c\n"})
	c.AddSidecar("b.branch", "a\n")

	s, repoDir := newSynthesizer(t, c, "")
	require.NoError(t, s.Run())

	r := openRepo(t, repoDir)
	a := tagCommit(t, r, "a")
	b := tagCommit(t, r, "b")
	cc := tagCommit(t, r, "c")

	// b hangs off a; the main line is a -> c, untouched by the graft.
	require.Equal(t, 1, b.NumParents())
	assert.Equal(t, a.Hash, b.ParentHashes[0])
	require.Equal(t, 1, cc.NumParents())
	assert.Equal(t, a.Hash, cc.ParentHashes[0])
	assert.Equal(t, cc.Hash, headCommit(t, r).Hash)

	// The disposable graft branch is gone.
	assert.Equal(t, []string{"main"}, branchNames(t, r))
}

func TestGraftRefMissingIsFatal(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})
	c.AddSnapshot("b", map[string]string{"file.txt": "b\n"})
	c.AddSnapshot("c", map[string]string{"file.txt": "c\n"})
	c.AddSidecar("b.branch", "missing\n")

	s, repoDir := newSynthesizer(t, c, "")
	err := s.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	// The run halts at b, leaving the valid prefix: a alone.
	assert.Equal(t, "a", testutil.Git(t, repoDir, "tag", "--list"))
}

func TestGraftOnFirstSnapshotFails(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})
	c.AddSidecar("a.branch", "whatever\n")

	s, _ := newSynthesizer(t, c, "")
	err := s.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestOrderFileControlsSequence(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("alpha", map[string]string{"file.txt": "alpha\n"})
	c.AddSnapshot("beta", map[string]string{"file.txt": "beta\n"})
	c.AddSidecar("mkrepo.order", "beta\nalpha\n")

	s, repoDir := newSynthesizer(t, c, "")
	require.NoError(t, s.Run())

	r := openRepo(t, repoDir)
	assert.Equal(t, "alpha", strings.TrimSpace(headCommit(t, r).Message))
	beta := tagCommit(t, r, "beta")
	assert.Zero(t, beta.NumParents())
}

func TestOrderFileNamesMustBeDirectories(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})
	c.AddSidecar("mkrepo.order", "a\nghost\n")

	s, repoDir := newSynthesizer(t, c, "")
	err := s.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	assert.Equal(t, "a", testutil.Git(t, repoDir, "tag", "--list"))
}

func TestMetadataApplied(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})
	c.AddSnapshot("b", map[string]string{"file.txt": "b\n"})
	c.AddSidecar("a.txt", "Initial import\n\nLong form body.\n")
	c.AddSidecar("author", "Global Author <global@example.com>\n")
	c.AddSidecar("committer", "Global Committer <gc@example.com>\n")
	c.AddSidecar("b.author", "Override Author <override@example.com>\n")
	c.AddSidecar("a.date", "1112912053 +0000\n")

	s, repoDir := newSynthesizer(t, c, "")
	require.NoError(t, s.Run())

	r := openRepo(t, repoDir)
	a := tagCommit(t, r, "a")
	assert.Equal(t, "Initial import\n\nLong form body.\n", a.Message)
	assert.Equal(t, "Global Author", a.Author.Name)
	assert.Equal(t, "global@example.com", a.Author.Email)
	assert.Equal(t, "Global Committer", a.Committer.Name)
	assert.Equal(t, "gc@example.com", a.Committer.Email)
	assert.EqualValues(t, 1112912053, a.Author.When.Unix())
	assert.EqualValues(t, 1112912053, a.Committer.When.Unix())

	b := tagCommit(t, r, "b")
	assert.Equal(t, "Override Author", b.Author.Name)
	assert.Equal(t, "Global Committer", b.Committer.Name)
}

func TestIncludeDirInEveryCommit(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n", "shared.txt": "snapshot version\n"})
	c.AddSnapshot("b", map[string]string{"file.txt": "b\n"})

	includeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(includeDir, "shared.txt"), []byte("include version\n"), 0644))

	s, repoDir := newSynthesizer(t, c, includeDir)
	require.NoError(t, s.Run())

	// Includes are layered over the snapshot in every commit.
	assert.Equal(t, "include version", testutil.Git(t, repoDir, "show", "a:shared.txt"))
	assert.Equal(t, "include version", testutil.Git(t, repoDir, "show", "b:shared.txt"))
}

func TestEmptyDirectoriesRecorded(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})
	c.AddDir("a", "emptydir")

	s, repoDir := newSynthesizer(t, c, "")
	require.NoError(t, s.Run())

	files := testutil.Git(t, repoDir, "ls-files")
	assert.Contains(t, files, "emptydir/.gitkeep")
}

func TestTagPerSnapshot(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("r1", map[string]string{"f": "1\n"})
	c.AddSnapshot("r2", map[string]string{"f": "1\n"}) // identical tree still commits
	c.AddSnapshot("r3", map[string]string{"f": "3\n"})
	c.AddSidecar("notes.txt", "not a snapshot\n")

	s, repoDir := newSynthesizer(t, c, "")
	require.NoError(t, s.Run())

	tags := strings.Fields(testutil.Git(t, repoDir, "tag", "--list"))
	assert.Equal(t, []string{"r1", "r2", "r3"}, tags)
}

func TestStaleStateRemovedAtStartup(t *testing.T) {
	c := testutil.NewCollection(t)
	c.AddSnapshot("a", map[string]string{"file.txt": "a\n"})

	s, repoDir := newSynthesizer(t, c, "")

	// Simulate a prior run that died mid-swap.
	stale := filepath.Join(filepath.Dir(repoDir), "."+filepath.Base(repoDir)+".gitstate")
	require.NoError(t, os.MkdirAll(stale, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "junk"), []byte("junk\n"), 0644))

	require.NoError(t, s.Run())
	assert.NoDirExists(t, stale)
	assert.Equal(t, "a", testutil.Git(t, repoDir, "tag", "--list"))
}
