package cmd

import (
	"fmt"
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/reposync/application"
	"github.com/rios0rios0/reposync/config"
)

var (
	eventPath string
	dryRun    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the sync against every configured destination repository",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if verbose {
			logger.SetLevel(logger.DebugLevel)
		}

		container, err := buildContainer(configPath)
		if err != nil {
			return err
		}

		ev, err := config.LoadEvent(eventPath)
		if err != nil {
			return err
		}

		return container.Invoke(func(service *application.Service) error {
			service.SetDryRun(dryRun)

			urls, runErr := service.Run(cmd.Context(), ev)
			for _, url := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), url)
			}
			if outErr := writeGitHubOutput(urls); outErr != nil {
				logger.Warnf("Failed to write workflow output: %v", outErr)
			}
			return runErr
		})
	},
}

// writeGitHubOutput exposes the PR URLs to the invoking workflow when a
// GITHUB_OUTPUT file is available.
func writeGitHubOutput(urls []string) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = fmt.Fprintf(f, "pull_request_urls=%s\n", strings.Join(urls, ","))
	return err
}

func init() {
	syncCmd.Flags().StringVarP(&eventPath, "event", "e", "", "Path to the push-event payload (defaults to GITHUB_EVENT_PATH)")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve and replay but do not publish or touch pull requests")
	rootCmd.AddCommand(syncCmd)
}
