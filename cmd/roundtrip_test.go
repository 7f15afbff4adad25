package cmd

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwilper/mkrepo/internal/testutil"
)

// TestRoundTrip builds a repository from snapshots and extracts every
// tag back out, asserting the trees survive byte-for-byte. The only
// accepted difference is the marker file synthesis adds to otherwise
// empty directories.
func TestRoundTrip(t *testing.T) {
	setDefaults(t)
	testutil.RequireGit(t)
	testutil.SetupIdentity(t)

	c := testutil.NewCollection(t)
	c.AddSnapshot("rel1", map[string]string{
		"main.c":         "int main(void) { return 0; }\n",
		"docs/README":    "first release\n",
		".hidden/secret": "kept\n",
	})
	c.AddSnapshot("rel2", map[string]string{
		"main.c":      "int main(void) { return 1; }\n",
		"docs/README": "second release\n",
		"extra.txt":   "added in rel2\n",
	})
	c.AddDir("rel2", "empty")
	c.AddSidecar("rel2.txt", "Second release with a real message\n")

	repoDir := filepath.Join(t.TempDir(), "repo")
	require.NoError(t, runBuild(nil, []string{c.Root, repoDir}))

	outDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, runExtract(nil, []string{repoDir, outDir}))

	for _, name := range []string{"rel1", "rel2"} {
		assertSameTree(t, filepath.Join(c.Root, name), filepath.Join(outDir, name), ".gitkeep")
	}

	// rel1's message is just the tag name: no sidecar. rel2's is not.
	assert.NoFileExists(t, filepath.Join(outDir, "rel1.txt"))
	msg, err := os.ReadFile(filepath.Join(outDir, "rel2.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Second release with a real message", string(msg))

	// The empty directory survived the trip, via its marker.
	assert.DirExists(t, filepath.Join(outDir, "rel2", "empty"))
}

// assertSameTree checks want's files all exist in got with identical
// bytes, and that got adds nothing beyond marker files.
func assertSameTree(t *testing.T, want, got, marker string) {
	t.Helper()

	err := filepath.WalkDir(want, func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		rel, err := filepath.Rel(want, path)
		require.NoError(t, err)
		if d.IsDir() {
			assert.DirExists(t, filepath.Join(got, rel))
			return nil
		}
		wantData, err := os.ReadFile(path)
		require.NoError(t, err)
		gotData, err := os.ReadFile(filepath.Join(got, rel))
		require.NoError(t, err, "missing file %s", rel)
		assert.Equal(t, string(wantData), string(gotData), rel)
		return nil
	})
	require.NoError(t, err)

	err = filepath.WalkDir(got, func(path string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() || filepath.Base(path) == marker {
			return nil
		}
		rel, err := filepath.Rel(got, path)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(want, rel), "unexpected extra file %s", rel)
		return nil
	})
	require.NoError(t, err)
}
