package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwilper/mkrepo/internal/config"
	"github.com/cwilper/mkrepo/internal/synth"
)

var buildCmd = &cobra.Command{
	Use:   "build <snapshot-root> <output-repo> [include-dir]",
	Short: "Build a tagged git repository from snapshot directories",
	Long: `Build a git repository where every snapshot directory under
<snapshot-root> becomes one tagged commit on the main line, in
mkrepo.order order when that file exists and byte-wise name order
otherwise. A snapshot with an N.branch sidecar is grafted onto the
named ref instead of the main line's tip.

When <include-dir> is given, its contents are merged into every commit
on top of the snapshot's own files.

Example:
  mkrepo build releases/ project.git shared/`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	snapshotRoot, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	repoDir, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}

	if info, err := os.Stat(snapshotRoot); err != nil {
		return fmt.Errorf("snapshot root: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("snapshot root %s is not a directory", snapshotRoot)
	}

	if _, err := os.Stat(repoDir); err == nil {
		return fmt.Errorf("output path already exists: %s", repoDir)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("output path: %w", err)
	}

	includeDir := ""
	if len(args) == 3 {
		if includeDir, err = filepath.Abs(args[2]); err != nil {
			return err
		}
		if info, err := os.Stat(includeDir); err != nil {
			return fmt.Errorf("include dir: %w", err)
		} else if !info.IsDir() {
			return fmt.Errorf("include dir %s is not a directory", includeDir)
		}
	}

	s := synth.New(synth.Options{
		SnapshotRoot: snapshotRoot,
		RepoDir:      repoDir,
		IncludeDir:   includeDir,
		MainBranch:   config.GetMainBranch(),
		MarkerFile:   config.GetMarkerFile(),
		GraftPrefix:  config.GetGraftPrefix(),
	})
	if err := s.Run(); err != nil {
		return err
	}

	fmt.Println("Done")
	return nil
}
