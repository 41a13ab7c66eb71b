package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/thinkscotty/outreach/internal/models"
)

const excerptWidth = 60

func historyCommand(opts *options) *cobra.Command {
	var (
		platform    string
		limit       int
		generations bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show published comments or recent selection cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p models.Platform
			if platform != "" {
				var err error
				if p, err = parsePlatform(platform); err != nil {
					return err
				}
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if generations {
				logs, err := a.db.RecentGenerations(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("load generations: %w", err)
				}
				renderGenerations(cmd.OutOrStdout(), logs, p)
				return nil
			}

			comments, err := a.db.ListComments(cmd.Context(), p, limit)
			if err != nil {
				return fmt.Errorf("load comments: %w", err)
			}
			renderComments(cmd.OutOrStdout(), comments)
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "only show this platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "rows to show")
	cmd.Flags().BoolVar(&generations, "generations", false, "show selection cycles instead of comments")
	return cmd
}

func renderComments(w io.Writer, comments []models.Comment) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"When", "Platform", "Score", "Publisher", "Provider", "Comment", "Target"})
	for _, c := range comments {
		t.AppendRow(table.Row{
			c.CreatedAt.Local().Format(time.DateTime),
			c.Platform,
			c.Score,
			c.Publisher,
			c.AIProvider,
			text.Trim(c.Content, excerptWidth),
			c.TargetURL,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "total", len(comments)})
	t.Render()
}

// renderGenerations lists cycles, filtered to platform when set.
func renderGenerations(w io.Writer, logs []models.GenerationLog, platform models.Platform) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"When", "Platform", "Target", "State", "Attempts", "Best", "Tokens", "Error"})
	n := 0
	for _, g := range logs {
		if platform != "" && g.Platform != platform {
			continue
		}
		n++
		t.AppendRow(table.Row{
			g.CreatedAt.Local().Format(time.DateTime),
			g.Platform,
			g.TargetID,
			g.State,
			g.Attempts,
			g.BestScore,
			g.TokensUsed,
			text.Trim(g.ErrorMessage, excerptWidth),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "total", n})
	t.Render()
}
