package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "reposync",
	Short: "Keeps files synchronized across repositories through pull requests",
	Long: `A tool that replays file changes from a source repository into one or
more destination repositories, proposing them as pull requests instead of
pushing to default branches.

For every configured destination it decides which source commits to replay,
applies the configured file rules commit by commit, publishes the resulting
commits (direct push or verified API commits, depending on the token), and
creates or updates the pull request that represents the sync relationship.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the sync configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
