package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Order returns the sequence of snapshot names to process.
//
// When an mkrepo.order file exists at the collection root its non-empty
// lines are the order, verbatim, duplicates included. Otherwise the
// root's subdirectories are sorted byte-wise by name, skipping entries
// reserved for sidecar use. Names are not validated here; the caller
// re-checks each one is an existing directory at use time.
func Order(fs afero.Fs, root string) ([]string, error) {
	orderPath := filepath.Join(root, OrderFile)
	if info, err := fs.Stat(orderPath); err == nil && !info.IsDir() {
		return readOrderFile(fs, orderPath)
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to check for %s: %w", OrderFile, err)
	}

	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot root: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || isReservedName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func readOrderFile(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", OrderFile, err)
	}
	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		// Names are verbatim; only the line ending is stripped, so a
		// directory name carrying spaces stays addressable.
		if line = strings.TrimSuffix(line, "\r"); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

func isReservedName(name string) bool {
	return name == OrderFile ||
		strings.HasSuffix(name, MessageSuffix) ||
		strings.HasSuffix(name, BranchSuffix)
}
