package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/robfig/cron/v3"

	"github.com/thinkscotty/outreach/internal/models"
)

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks every section and returns all problems joined.
func (c Config) Validate() error {
	var errs []error

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, invalid("logging.level", "must be one of: debug, info, warn, error"))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, invalid("logging.format", "must be json or console"))
	}

	if c.Database.Path == "" {
		errs = append(errs, invalid("database.path", "is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, invalid("server.port", "must be between 1 and 65535"))
	}

	if !slices.Contains(ProviderNames, c.AI.Provider) {
		errs = append(errs, invalid("ai.provider", "unknown provider %q", c.AI.Provider))
	}
	for _, p := range c.AI.FallbackProviders {
		if !slices.Contains(ProviderNames, p) {
			errs = append(errs, invalid("ai.fallback_providers", "unknown provider %q", p))
		}
	}
	if c.AI.ReviewProvider != "" && !slices.Contains(ProviderNames, c.AI.ReviewProvider) {
		errs = append(errs, invalid("ai.review_provider", "unknown provider %q", c.AI.ReviewProvider))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, invalid("ai.temperature", "must be between 0 and 2"))
	}

	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if err := c.Selection.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("selection: %w", err))
	}
	if c.Selection.Perfect > c.Scoring.Perfect() {
		errs = append(errs, invalid("selection.perfect", "%d exceeds the maximum rubric total %d", c.Selection.Perfect, c.Scoring.Perfect()))
	}
	if c.Similarity.Threshold <= 0 || c.Similarity.Threshold > 1 {
		errs = append(errs, invalid("similarity.threshold", "must be in (0, 1]"))
	}
	if err := c.History.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Session.MaxTargets < 0 {
		errs = append(errs, invalid("session.max_targets", "must not be negative"))
	}
	if err := c.Domains.Validate(); err != nil {
		errs = append(errs, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for _, p := range models.Platforms {
		pc := c.Platforms.Get(p)
		field := "platforms." + string(p)
		if pc.Enabled && len(pc.Queries) == 0 {
			errs = append(errs, invalid(field+".queries", "at least one query is required when enabled"))
		}
		if pc.AIProvider != "" && !slices.Contains(ProviderNames, pc.AIProvider) {
			errs = append(errs, invalid(field+".ai_provider", "unknown provider %q", pc.AIProvider))
		}
		switch pc.Publisher {
		case "api", "outbox":
		default:
			errs = append(errs, invalid(field+".publisher", "must be api or outbox"))
		}
		if p == models.PlatformQuora && pc.Publisher == "api" {
			errs = append(errs, invalid(field+".publisher", "quora has no posting api, use outbox"))
		}
		if pc.Schedule != "" {
			if _, err := parser.Parse(pc.Schedule); err != nil {
				errs = append(errs, invalid(field+".schedule", "%v", err))
			}
		}
	}

	return errors.Join(errs...)
}
