// Package worktree builds working-tree contents for one commit and
// manages the repository's persistent state directory while doing so.
package worktree

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Materialize fills the (empty) working-tree root dst with one commit's
// contents: the snapshot tree, then the include tree layered on top
// (include content shadows identically-named snapshot content), then a
// marker file in every directory that would otherwise be empty, so git
// records the directory. includeDir may be empty. Copy failures are
// fatal and partial copies are not rolled back.
func Materialize(dst, snapshotDir, includeDir, marker string) error {
	if err := CopyTree(snapshotDir, dst); err != nil {
		return fmt.Errorf("failed to copy snapshot %s: %w", snapshotDir, err)
	}
	if includeDir != "" {
		if err := CopyTree(includeDir, dst); err != nil {
			return fmt.Errorf("failed to copy includes %s: %w", includeDir, err)
		}
	}
	return MarkEmptyDirs(dst, marker)
}

// CopyTree recursively copies src into dst, hidden entries included.
// Existing destination files are overwritten; directories are merged.
// Regular files keep their permissions and symlinks are recreated.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		case d.Type()&os.ModeSymlink != 0:
			dest, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				return err
			}
			return os.Symlink(dest, target)
		default:
			return copyFile(path, target)
		}
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	// Opening through an existing symlink would rewrite its target
	// instead of shadowing the link itself.
	if existing, err := os.Lstat(dst); err == nil && existing.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(dst); err != nil {
			return err
		}
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// MarkEmptyDirs writes a single marker file into every directory under
// root that has no entries at all. The scan is exhaustive: a directory
// whose only entry is a subdirectory gets no marker of its own, however
// deep the nesting.
func MarkEmptyDirs(root, marker string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan for empty directories: %w", err)
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, marker), nil, 0644); err != nil {
			return fmt.Errorf("failed to write marker in %s: %w", dir, err)
		}
	}
	return nil
}
