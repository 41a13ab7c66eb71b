package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "outreach",
		Short: "Finds discussions and posts quality-gated comments about keyword research",
		Long: `outreach searches Reddit, YouTube, LinkedIn and Quora for discussions,
generates comments with an LLM, scores every candidate against a rubric and
publishes only the ones that pass. It also checks keyword domains for availability.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "outreach.yaml", "path to the configuration file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		runCommand(opts),
		scheduleCommand(opts),
		domainsCommand(opts),
		historyCommand(opts),
		scoreCommand(opts),
		hashKeyCommand(),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "outreach %s (built %s)\n", version, buildTime)
		},
	}
}
