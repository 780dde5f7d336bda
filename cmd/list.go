package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/reposync/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the resolved destination repositories and their file rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			found, err := config.FindConfigFile()
			if err != nil {
				return err
			}
			path = found
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		targets, err := cfg.Targets()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, target := range targets {
			fmt.Fprintf(out, "%s\n", target.Repo.UniqueKey)
			for _, rule := range target.Rules {
				flags := ""
				if rule.Template {
					flags += " template"
				}
				if rule.DeleteOrphaned {
					flags += " deleteOrphaned"
				}
				if !rule.Replace {
					flags += " keepExisting"
				}
				fmt.Fprintf(out, "  %s -> %s%s\n", rule.Source, rule.Dest, flags)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
