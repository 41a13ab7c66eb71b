package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/scheduler"
	"github.com/thinkscotty/outreach/internal/server"
)

const shutdownTimeout = 10 * time.Second

func scheduleCommand(opts *options) *cobra.Command {
	var (
		noServer bool
		runNow   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run enabled platforms on their cron schedules and serve the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if days := a.cfg.Database.GenerationRetentionDays; days > 0 {
				if err := a.db.CleanOldGenerations(ctx, days); err != nil {
					a.log.Warn("Failed to prune generation log", logger.Error(err))
				}
			}

			sched := scheduler.New(a.scheduledRun, a.log)
			var scheduled []models.Platform
			for _, p := range models.Platforms {
				pc := a.cfg.Platforms.Get(p)
				if !pc.Enabled || pc.Schedule == "" {
					continue
				}
				if err := sched.Add(p, pc.Schedule); err != nil {
					return err
				}
				scheduled = append(scheduled, p)
			}
			if len(scheduled) == 0 {
				return errors.New("no enabled platform has a schedule")
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				sched.Start(ctx)
				return nil
			})

			if runNow {
				g.Go(func() error {
					for _, p := range scheduled {
						if ctx.Err() != nil {
							break
						}
						sched.Trigger(ctx, p)
					}
					return nil
				})
			}

			if !noServer {
				srv := server.New(a.cfg.Server, a.db, a.registry, a.log, version)
				g.Go(srv.Start)
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			a.log.Info("Outreach scheduler running", logger.String("version", version), logger.Int("platforms", len(scheduled)))
			return ignoreCanceled(g.Wait())
		},
	}

	cmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the status server")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run every scheduled platform once at startup")
	return cmd
}

// scheduledRun is the scheduler callback: one session with the configured
// queries and session settings.
func (a *app) scheduledRun(ctx context.Context, platform models.Platform) error {
	rep, err := a.runPlatform(ctx, platform, a.cfg.Session, nil)
	if err != nil {
		return err
	}
	a.log.Info("Scheduled run finished",
		logger.String("platform", string(platform)),
		logger.String("run_id", rep.RunID),
		logger.Int("published", rep.Published),
		logger.Duration("duration", rep.Duration),
	)
	return nil
}
