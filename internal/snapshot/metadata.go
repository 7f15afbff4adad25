package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cwilper/mkrepo/internal/git"
	"github.com/spf13/afero"
)

// Metadata is the fully resolved commit metadata for one snapshot.
// Zero-valued fields mean "leave the engine default in effect".
type Metadata struct {
	Message       string
	Author        string // verbatim "Name <email>"
	Committer     *git.Identity
	AuthorDate    string
	CommitterDate string
	Branch        string // parent ref for a grafted commit
}

// Resolve reads the sidecar files for one snapshot and applies the
// precedence rules: per-snapshot files beat directory-wide defaults,
// and a combined date file beats the separate author/committer dates.
// Missing files are not errors; Resolve only reads.
func Resolve(fs afero.Fs, root, name string) (Metadata, error) {
	meta := Metadata{Message: name}

	if msg, ok, err := readSidecar(fs, root, name+MessageSuffix); err != nil {
		return Metadata{}, err
	} else if ok {
		meta.Message = msg // verbatim, embedded newlines included
	}

	author, _, err := readFirst(fs, root, name+AuthorSuffix, DefaultAuthorFile)
	if err != nil {
		return Metadata{}, err
	}
	meta.Author = strings.TrimSpace(author)

	committer, ok, err := readFirst(fs, root, name+CommitterSuffix, DefaultCommitterFile)
	if err != nil {
		return Metadata{}, err
	}
	if ok {
		ident, err := git.ParseIdentity(strings.TrimSpace(committer))
		if err != nil {
			return Metadata{}, fmt.Errorf("bad committer for snapshot %q: %w", name, err)
		}
		meta.Committer = &ident
	}

	if date, ok, err := readSidecar(fs, root, name+DateSuffix); err != nil {
		return Metadata{}, err
	} else if ok {
		date = strings.TrimSpace(date)
		meta.AuthorDate = date
		meta.CommitterDate = date
	} else {
		if d, ok, err := readSidecar(fs, root, name+AuthorDateSuffix); err != nil {
			return Metadata{}, err
		} else if ok {
			meta.AuthorDate = strings.TrimSpace(d)
		}
		if d, ok, err := readSidecar(fs, root, name+CommitterDateSuffix); err != nil {
			return Metadata{}, err
		} else if ok {
			meta.CommitterDate = strings.TrimSpace(d)
		}
	}

	if ref, ok, err := readSidecar(fs, root, name+BranchSuffix); err != nil {
		return Metadata{}, err
	} else if ok {
		meta.Branch = strings.TrimSpace(ref)
	}

	return meta, nil
}

// readSidecar returns a sidecar file's contents and whether it exists.
func readSidecar(fs afero.Fs, root, name string) (string, bool, error) {
	path := filepath.Join(root, name)
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return "", false, fmt.Errorf("failed to check sidecar %s: %w", name, err)
	}
	if !ok {
		return "", false, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read sidecar %s: %w", name, err)
	}
	return string(data), true, nil
}

// readFirst returns the contents of the first existing file among names.
func readFirst(fs afero.Fs, root string, names ...string) (string, bool, error) {
	for _, name := range names {
		if content, ok, err := readSidecar(fs, root, name); err != nil || ok {
			return content, ok, err
		}
	}
	return "", false, nil
}
