package config

import "github.com/spf13/viper"

// GetMainBranch returns the branch name used for the main line of history.
func GetMainBranch() string {
	return viper.GetString("repo.main_branch")
}

// GetMarkerFile returns the file name placed inside otherwise-empty
// directories so git records them.
func GetMarkerFile() string {
	return viper.GetString("repo.marker_file")
}

// GetGraftPrefix returns the name prefix for disposable graft branches.
func GetGraftPrefix() string {
	return viper.GetString("repo.graft_prefix")
}
