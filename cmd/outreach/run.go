package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/session"
)

func runCommand(opts *options) *cobra.Command {
	var (
		dryRun     bool
		queries    []string
		maxTargets int
		noPause    bool
	)

	cmd := &cobra.Command{
		Use:       "run <platform>",
		Short:     "Run one outreach session on a platform",
		Args:      cobra.ExactArgs(1),
		ValidArgs: platformNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := parsePlatform(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Session
			cfg.DryRun = cfg.DryRun || dryRun
			if cmd.Flags().Changed("max-targets") {
				cfg.MaxTargets = maxTargets
			}
			if noPause {
				cfg.PauseBetweenQueries = 0
				cfg.PauseBetweenTargets = 0
			}

			rep, err := a.runPlatform(cmd.Context(), platform, cfg, queries)
			if rep != nil {
				renderReport(cmd.OutOrStdout(), rep)
			}
			return ignoreCanceled(err)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate and score but only log accepted comments")
	cmd.Flags().StringSliceVarP(&queries, "query", "q", nil, "search query (repeatable, overrides the configured queries)")
	cmd.Flags().IntVar(&maxTargets, "max-targets", 0, "targets to generate for, 0 is unlimited")
	cmd.Flags().BoolVar(&noPause, "no-pause", false, "skip the pauses between targets and queries")
	return cmd
}

func parsePlatform(name string) (models.Platform, error) {
	p, ok := models.ParsePlatform(name)
	if !ok {
		return "", fmt.Errorf("unknown platform %q (want one of %v)", name, platformNames())
	}
	return p, nil
}

func platformNames() []string {
	names := make([]string, len(models.Platforms))
	for i, p := range models.Platforms {
		names[i] = string(p)
	}
	return names
}

func renderReport(w io.Writer, rep *session.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s run %s", rep.Platform, rep.RunID))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"queries", rep.Queries},
		{"search errors", rep.SearchErrors},
		{"targets seen", rep.Seen},
		{"cycles", rep.Cycles},
		{"accepted", rep.Accepted},
		{"exhausted", rep.Exhausted},
		{"published", rep.Published},
		{"publish failures", rep.PublishFailed},
		{"tokens used", rep.TokensUsed},
	})

	reasons := make([]string, 0, len(rep.Skipped))
	for r := range rep.Skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		t.AppendRow(table.Row{"skipped: " + r, rep.Skipped[r]})
	}

	t.AppendFooter(table.Row{"duration", rep.Duration.Round(time.Second)})
	t.Render()
}

// ignoreCanceled treats a signal-driven shutdown as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
