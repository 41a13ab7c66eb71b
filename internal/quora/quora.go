// Package quora finds Quora questions through site: searches. Quora has no
// posting API, so answers go to the outbox.
package quora

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/scraper"
)

// Scraper is the part of the scraper the Quora source uses.
type Scraper interface {
	Search(ctx context.Context, site, domain, query string) ([]string, error)
	Fetch(ctx context.Context, pageURL string, selectors ...string) (*scraper.Page, error)
	Select(ctx context.Context, pageURL, selector string) ([]string, error)
}

type Config struct {
	// Username is the display name answers are posted under.
	Username   string `yaml:"username"`
	SearchSite string `yaml:"search_site"`
}

func DefaultConfig() Config {
	return Config{SearchSite: "quora.com"}
}

var questionSelectors = []string{
	".puppeteer_test_question_title",
	".q-text",
	"main",
}

const authorSelector = `a[href*="/profile/"]`

// Non-question sections of the site.
var skipPrefixes = []string{"/profile/", "/topic/", "/search", "/q/", "/spaces", "/about", "/answer/", "/unanswered/"}

type Client struct {
	cfg     Config
	scraper Scraper
	log     logger.Logger
}

func New(cfg Config, s Scraper, log logger.Logger) *Client {
	if cfg.SearchSite == "" {
		cfg.SearchSite = DefaultConfig().SearchSite
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{cfg: cfg, scraper: s, log: log.With(logger.String("platform", string(models.PlatformQuora)))}
}

// Search returns question pages for query. The canonical question URL is
// the target id.
func (c *Client) Search(ctx context.Context, query string) ([]models.Target, error) {
	links, err := c.scraper.Search(ctx, c.cfg.SearchSite, "quora.com", query)
	if err != nil {
		return nil, err
	}

	var targets []models.Target
	seen := make(map[string]bool)
	for _, link := range links {
		canonical, ok := QuestionURL(link)
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true

		t := models.Target{
			Platform: models.PlatformQuora,
			ID:       canonical,
			URL:      canonical,
			Title:    titleFromURL(canonical),
			Query:    query,
		}
		page, err := c.scraper.Fetch(ctx, canonical, questionSelectors...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn("Could not fetch question", logger.String("url", canonical), logger.Error(err))
		} else {
			t.Body = page.Text
			if title := strings.TrimSuffix(page.Title, " - Quora"); title != "" {
				t.Title = title
			}
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// HasCommented looks for the username among the answer authors on the
// question page. Without a username nothing can be checked.
func (c *Client) HasCommented(ctx context.Context, t models.Target) (bool, error) {
	if c.cfg.Username == "" {
		return false, nil
	}
	authors, err := c.scraper.Select(ctx, t.URL, authorSelector)
	if err != nil {
		return false, fmt.Errorf("check answers on %s: %w", t.URL, err)
	}
	want := strings.ToLower(c.cfg.Username)
	for _, a := range authors {
		if strings.Contains(strings.ToLower(a), want) {
			return true, nil
		}
	}
	return false, nil
}

// QuestionURL normalizes a Quora link to https://www.quora.com/<slug>,
// rejecting profile, topic and other non-question pages.
func QuestionURL(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "quora.com" && !strings.HasSuffix(host, ".quora.com") {
		return "", false
	}
	path := strings.TrimRight(u.Path, "/")
	if path == "" || strings.Count(path, "/") != 1 {
		return "", false
	}
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path+"/", p) {
			return "", false
		}
	}
	return "https://www.quora.com" + path, true
}

func titleFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	slug := strings.Trim(u.Path, "/")
	if s, err := url.PathUnescape(slug); err == nil {
		slug = s
	}
	return strings.ReplaceAll(slug, "-", " ") + "?"
}
