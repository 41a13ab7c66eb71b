package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinkscotty/outreach/internal/domains"
	"github.com/thinkscotty/outreach/internal/logger"
)

func domainsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Domain availability tools",
	}
	cmd.AddCommand(domainsCheckCommand(opts))
	return cmd
}

func domainsCheckCommand(opts *options) *cobra.Command {
	var (
		method    string
		tld       string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "check <keywords.csv|keywords.xlsx>",
		Short: "Check <keyword>.<tld> availability for every keyword in a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Domains
			if method != "" {
				cfg.Method = method
			}
			if tld != "" {
				cfg.TLD = tld
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			keywords, err := domains.ReadKeywords(args[0])
			if err != nil {
				return err
			}
			a.log.Info("Keywords loaded", logger.String("file", args[0]), logger.Int("count", len(keywords)))

			checker, err := domains.NewChecker(cfg)
			if err != nil {
				return err
			}
			sum, err := domains.NewRunner(cfg, checker, a.db, a.metrics, a.log).Run(cmd.Context(), keywords)
			if sum != nil {
				domains.RenderSummary(cmd.OutOrStdout(), sum)
				if cfg.Method == "whois" && len(sum.Available) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Verify available domains with a registrar before buying.")
				}
			}
			return ignoreCanceled(err)
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "check method: dns or whois (default from config)")
	cmd.Flags().StringVar(&tld, "tld", "", "top level domain (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the result files (default from config)")
	return cmd
}
