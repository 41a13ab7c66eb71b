package domains

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/time/rate"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/metrics"
	"github.com/thinkscotty/outreach/internal/models"
)

const (
	AvailableFile = "available_domains.txt"
	TakenFile     = "taken_domains.txt"
	UncertainFile = "uncertain_domains.txt"
)

const whoisNotice = "IMPORTANT: Always verify availability with a domain registrar\n" +
	"These results are preliminary and may include false positives\n\n"

// Config configures a domain check run.
type Config struct {
	// Method is "dns" or "whois".
	Method    string        `yaml:"method"`
	TLD       string        `yaml:"tld"`
	Pause     time.Duration `yaml:"pause"`
	Timeout   time.Duration `yaml:"timeout"`
	OutputDir string        `yaml:"output_dir"`
}

func DefaultConfig() Config {
	return Config{
		Method:    "dns",
		TLD:       "com",
		Pause:     500 * time.Millisecond,
		Timeout:   10 * time.Second,
		OutputDir: ".",
	}
}

// Validate checks the method and TLD.
func (c Config) Validate() error {
	if c.Method != "dns" && c.Method != "whois" {
		return fmt.Errorf("domains.method must be dns or whois, got %q", c.Method)
	}
	if strings.Trim(c.TLD, ".") == "" {
		return fmt.Errorf("domains.tld is required")
	}
	if c.Pause < 0 {
		return fmt.Errorf("domains.pause must not be negative")
	}
	return nil
}

// NewChecker builds the checker named by cfg.Method.
func NewChecker(cfg Config) (Checker, error) {
	switch cfg.Method {
	case "dns":
		return NewDNSChecker(nil, cfg.Timeout), nil
	case "whois":
		return NewWhoisChecker(nil, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown domain check method %q", cfg.Method)
	}
}

// Store persists check results.
type Store interface {
	SaveDomainCheck(ctx context.Context, c *models.DomainCheck) error
}

// Summary groups the domains of one run by status.
type Summary struct {
	Method    string
	Available []string
	Taken     []string
	Uncertain []string
	Checks    []models.DomainCheck
	Duration  time.Duration
}

// Total is the number of domains checked.
func (s *Summary) Total() int {
	return len(s.Available) + len(s.Taken) + len(s.Uncertain)
}

// Runner checks keywords one at a time, paced by a limiter.
type Runner struct {
	cfg     Config
	checker Checker
	store   Store
	metrics *metrics.Metrics
	log     logger.Logger
	limiter *rate.Limiter
}

// NewRunner wires a run. store and m may be nil.
func NewRunner(cfg Config, checker Checker, store Store, m *metrics.Metrics, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	return &Runner{
		cfg:     cfg,
		checker: checker,
		store:   store,
		metrics: m,
		log:     log.With(logger.String("method", checker.Method())),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Run checks <keyword>.<tld> for every keyword and writes the result
// files. On cancellation the files hold what was checked so far and the
// context error is returned with the partial summary.
func (r *Runner) Run(ctx context.Context, keywords []string) (*Summary, error) {
	start := time.Now()
	tld := strings.Trim(r.cfg.TLD, ".")
	sum := &Summary{Method: r.checker.Method()}

	var runErr error
	for _, kw := range keywords {
		kw = CleanKeyword(kw)
		if kw == "" {
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}

		domain := kw + "." + tld
		v := r.checker.Check(ctx, domain)
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		check := models.DomainCheck{
			Keyword:    kw,
			Domain:     domain,
			Status:     v.Status,
			Method:     r.checker.Method(),
			ExpiryDate: v.ExpiryDate,
			CheckedAt:  time.Now().UTC(),
		}
		if v.Err != nil {
			check.Error = v.Err.Error()
		}

		switch v.Status {
		case models.DomainAvailable:
			sum.Available = append(sum.Available, domain)
		case models.DomainTaken:
			sum.Taken = append(sum.Taken, domain)
		default:
			check.Status = models.DomainUncertain
			sum.Uncertain = append(sum.Uncertain, domain)
		}
		sum.Checks = append(sum.Checks, check)
		r.metrics.DomainChecked(check.Method, string(check.Status))

		fields := []logger.Field{logger.String("domain", domain), logger.String("status", string(check.Status))}
		if v.Err != nil {
			fields = append(fields, logger.Error(v.Err))
		}
		r.log.Info("Domain checked", fields...)

		if r.store != nil {
			if err := r.store.SaveDomainCheck(ctx, &check); err != nil {
				r.log.Warn("Failed to save domain check", logger.String("domain", domain), logger.Error(err))
			}
		}
	}

	sum.Duration = time.Since(start)
	if err := r.write(sum); err != nil {
		return sum, err
	}
	return sum, runErr
}

func (r *Runner) write(sum *Summary) error {
	dir := r.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	header := ""
	if sum.Method == "whois" {
		header = whoisNotice
	}
	files := []struct {
		name    string
		header  string
		domains []string
	}{
		{AvailableFile, header, sum.Available},
		{TakenFile, "", sum.Taken},
		{UncertainFile, "", sum.Uncertain},
	}
	for _, f := range files {
		content := f.header + strings.Join(f.domains, "\n")
		if len(f.domains) > 0 {
			content += "\n"
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

// RenderSummary prints the per-status counts as a table.
func RenderSummary(w io.Writer, sum *Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Status", "Domains", "File"})
	t.AppendRows([]table.Row{
		{models.DomainAvailable, len(sum.Available), AvailableFile},
		{models.DomainTaken, len(sum.Taken), TakenFile},
		{models.DomainUncertain, len(sum.Uncertain), UncertainFile},
	})
	t.AppendFooter(table.Row{"total", sum.Total(), sum.Duration.Round(time.Millisecond)})
	t.Render()
}
