package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/scoring"
)

func scoreCommand(opts *options) *cobra.Command {
	var (
		platform string
		title    string
		body     string
		review   bool
	)

	cmd := &cobra.Command{
		Use:   "score <comment>",
		Short: "Score a comment against the rubric for a target",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePlatform(platform)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if review {
				a.cfg.Scoring.Review.Enabled = true
			}

			target := models.Target{Platform: p, ID: "cli", Title: title, Body: body}
			cand := models.Candidate{Text: strings.Join(args, " ")}
			res, err := a.scorer().Score(cmd.Context(), cand, target)
			if err != nil {
				return fmt.Errorf("score: %w", err)
			}
			renderResult(cmd.OutOrStdout(), res, a.cfg.Scoring.Perfect())
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "reddit", "platform whose comment history is checked for duplicates")
	cmd.Flags().StringVar(&title, "title", "", "target title")
	cmd.Flags().StringVar(&body, "body", "", "target body")
	cmd.Flags().BoolVar(&review, "review", false, "also run the LLM review")
	return cmd
}

var criterionOrder = []string{
	scoring.CriterionLength,
	scoring.CriterionNoDirectAddress,
	scoring.CriterionNoPlatitude,
	scoring.CriterionMarker,
	scoring.CriterionNoPromotional,
	scoring.CriterionNoFormal,
}

func renderResult(w io.Writer, res scoring.Result, perfect int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Criterion", "Points"})
	for _, c := range criterionOrder {
		if pts, ok := res.Criteria[c]; ok {
			t.AppendRow(table.Row{c, pts})
		}
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"length (chars)", res.Candidate.Length})
	t.AppendRow(table.Row{"on topic", res.OnTopic})
	t.AppendRow(table.Row{"marker mentions", fmt.Sprintf("%d (%d linked)", res.Occurrences, res.Linked)})
	if res.Rejected {
		t.AppendRow(table.Row{"rejected", res.Reason()})
	}
	t.AppendFooter(table.Row{"total", fmt.Sprintf("%d / %d", res.Total, perfect)})
	t.Render()
}
