package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// version is overridable at build time via -ldflags.
var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "mkrepo",
	Short: "Turn ordered directory snapshots into a tagged git history, and back",
	Long: `mkrepo converts a series of source-tree snapshots (plain directories)
into a git repository where every snapshot becomes one tagged commit,
and extracts one directory per tag from an existing repository.

Snapshot metadata is supplied through sidecar files next to each
snapshot directory:

  N/                 snapshot content
  N.txt              commit message (default: the snapshot name)
  N.branch           parent ref for a grafted, off-mainline commit
  N.author           author override ("Name <email>")
  N.committer        committer override ("Name <email>")
  N.date             combined author+committer timestamp
  N.author-date      author timestamp only
  N.committer-date   committer timestamp only
  author, committer  directory-wide identity defaults
  mkrepo.order       explicit processing order, one name per line`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/mkrepo/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "mkrepo")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("MKREPO")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("repo.main_branch", "main")
	viper.SetDefault("repo.marker_file", ".gitkeep")
	viper.SetDefault("repo.graft_prefix", "mkrepo/graft-")

	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using config file: %s", viper.ConfigFileUsed())
	}
}
