package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwilper/mkrepo/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract <repo> <output-dir> [tag...]",
	Short: "Extract one directory per tag from a git repository",
	Long: `Extract each tag of <repo> (all tags by default, or just the
ones listed) into <output-dir>/<tag>. The commit message is written to
<output-dir>/<tag>.txt unless it is exactly the tag name.

The repository must have no uncommitted changes; the branch that was
checked out when the run started is restored afterwards, even when a
tag in the middle fails.

Example:
  mkrepo extract project.git releases/ rel1 rel2`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	repoDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	outDir, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}

	opts := extract.Options{
		RepoDir: repoDir,
		OutDir:  outDir,
		Tags:    args[2:],
	}
	if err := extract.Run(opts); err != nil {
		return err
	}

	fmt.Println("Done")
	return nil
}
