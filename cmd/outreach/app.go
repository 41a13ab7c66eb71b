package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/thinkscotty/outreach/internal/ai"
	"github.com/thinkscotty/outreach/internal/config"
	"github.com/thinkscotty/outreach/internal/database"
	"github.com/thinkscotty/outreach/internal/history"
	"github.com/thinkscotty/outreach/internal/linkedin"
	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/metrics"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/publish"
	"github.com/thinkscotty/outreach/internal/quora"
	"github.com/thinkscotty/outreach/internal/reddit"
	"github.com/thinkscotty/outreach/internal/relevance"
	"github.com/thinkscotty/outreach/internal/scoring"
	"github.com/thinkscotty/outreach/internal/scraper"
	"github.com/thinkscotty/outreach/internal/selection"
	"github.com/thinkscotty/outreach/internal/session"
	"github.com/thinkscotty/outreach/internal/similarity"
	"github.com/thinkscotty/outreach/internal/youtube"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	debug      bool
}

// app holds the services built from the configuration.
type app struct {
	cfg        config.Config
	log        logger.Logger
	db         *database.DB
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	ai         *ai.Client
	classifier *relevance.Classifier
	checker    *similarity.Checker
	scraper    *scraper.Scraper
	history    history.Tracker

	closers []func() error
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	cfg, found, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if !found {
		log.Warn("Config file not found, using defaults", logger.String("path", opts.configPath))
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Debug("Database initialized", logger.String("path", cfg.Database.Path))

	a := &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		registry:   prometheus.NewRegistry(),
		classifier: relevance.New(cfg.Relevance),
		checker:    similarity.New(cfg.Similarity.Threshold, cfg.Similarity.NGramSize),
		scraper:    scraper.New(cfg.Scraper, log),
		closers:    []func() error{db.Close},
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	if err := db.ApplySettings(cfg.AI.Settings()); err != nil {
		a.Close()
		return nil, fmt.Errorf("apply ai settings: %w", err)
	}
	a.ai = ai.NewClient(db, log)

	if err := a.openHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openHistory(ctx context.Context) error {
	switch a.cfg.History.Backend {
	case "memory":
		a.history = history.NewMemory()
	case "redis":
		r, err := history.NewRedis(ctx, a.cfg.History.Redis, a.log)
		if err != nil {
			return fmt.Errorf("open redis history: %w", err)
		}
		a.history = r
		a.closers = append(a.closers, r.Close)
	default:
		a.history = history.NewSQLite(a.db)
	}
	a.log.Debug("History tracker ready", logger.String("backend", a.cfg.History.Backend))
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.log.Sync()
	return errors.Join(errs...)
}

// source returns the platform adapter used for search and duplicate checks.
func (a *app) source(platform models.Platform) (session.Source, error) {
	p := a.cfg.Platforms
	switch platform {
	case models.PlatformReddit:
		return reddit.New(p.Reddit.Client, a.log), nil
	case models.PlatformYouTube:
		return youtube.New(p.YouTube.Client, a.log), nil
	case models.PlatformLinkedIn:
		return linkedin.New(p.LinkedIn.Client, a.scraper, a.log), nil
	case models.PlatformQuora:
		return quora.New(p.Quora.Client, a.scraper, a.log), nil
	}
	return nil, fmt.Errorf("unknown platform %q", platform)
}

// publisher picks where accepted comments go. Dry runs only log them.
func (a *app) publisher(platform models.Platform, src session.Source, dryRun bool) (session.Publisher, error) {
	if dryRun {
		return publish.NewLog(a.log), nil
	}
	pc := a.cfg.Platforms.Get(platform)
	if pc.Publisher == "outbox" {
		outbox, err := publish.NewOutbox(a.cfg.Outbox.Path)
		if err != nil {
			return nil, err
		}
		return outbox, nil
	}
	pub, ok := src.(session.Publisher)
	if !ok {
		return nil, fmt.Errorf("%s has no api publisher, use the outbox", platform)
	}
	return pub, nil
}

// scorer builds the rubric, the optional LLM review and the similarity
// filter against earlier comments on the platform.
func (a *app) scorer() scoring.Scorer {
	var s scoring.Scorer = scoring.NewRubric(a.cfg.Scoring, a.classifier)
	if a.cfg.Scoring.Review.Enabled {
		s = scoring.Reviewed(s, a.ai, a.cfg.Scoring.Review)
	}
	limit := a.cfg.Similarity.HistoryLimit
	return scoring.Deduplicated(s, a.checker, func(ctx context.Context, p models.Platform) ([]similarity.StoredTrigrams, error) {
		return a.db.CommentTrigrams(ctx, p, limit)
	})
}

func (a *app) generator(platform models.Platform) *ai.CommentGenerator {
	pc := a.cfg.Platforms.Get(platform)
	maxChars := pc.MaxChars
	if maxChars <= 0 {
		maxChars = a.cfg.Scoring.MaxLength
	}
	return &ai.CommentGenerator{
		Client: a.ai,
		Opts: ai.CommentOpts{
			Provider:     pc.AIProvider,
			Marker:       a.cfg.Scoring.Marker,
			MarkerURL:    a.cfg.AI.MarkerURL,
			Instructions: pc.Instructions,
			MaxChars:     maxChars,
			Temperature:  a.cfg.AI.Temperature,
			MaxTokens:    a.cfg.AI.MaxTokens,
		},
		OnTopic: func(t models.Target) bool {
			return a.classifier.Classify(t.Title, t.Body).OnTopic
		},
	}
}

// newSession wires one platform run.
func (a *app) newSession(platform models.Platform, cfg session.Config) (*session.Session, error) {
	src, err := a.source(platform)
	if err != nil {
		return nil, err
	}
	pub, err := a.publisher(platform, src, cfg.DryRun)
	if err != nil {
		return nil, err
	}
	loop, err := selection.New(a.cfg.Selection, a.generator(platform), a.scorer(), a.log)
	if err != nil {
		return nil, err
	}
	return session.New(platform, cfg, session.Deps{
		Source:     src,
		Publisher:  pub,
		Selector:   loop,
		History:    a.history,
		Classifier: a.classifier,
		Checker:    a.checker,
		Recorder:   a.db,
		Metrics:    a.metrics,
		Log:        a.log,
	}), nil
}

// runPlatform runs one session with the configured queries.
func (a *app) runPlatform(ctx context.Context, platform models.Platform, cfg session.Config, queries []string) (*session.Report, error) {
	if len(queries) == 0 {
		queries = a.cfg.Platforms.Get(platform).Queries
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries configured for %s", platform)
	}
	s, err := a.newSession(platform, cfg)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, queries)
}
