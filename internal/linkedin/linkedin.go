// Package linkedin finds LinkedIn posts through site: searches and comments
// on them with the socialActions REST API.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/retry"
	"github.com/thinkscotty/outreach/internal/scraper"
)

// Scraper is the part of the scraper the LinkedIn source uses.
type Scraper interface {
	Search(ctx context.Context, site, domain, query string) ([]string, error)
	Fetch(ctx context.Context, pageURL string, selectors ...string) (*scraper.Page, error)
}

// Config configures the LinkedIn client.
type Config struct {
	APIURL      string `yaml:"api_url"`
	AccessToken string `yaml:"access_token"`
	// ActorURN is who comments: urn:li:person:... or urn:li:organization:...
	ActorURN          string        `yaml:"actor_urn"`
	APIVersion        string        `yaml:"api_version"`
	SearchSite        string        `yaml:"search_site"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	Retry             retry.Config  `yaml:"retry"`
}

func DefaultConfig() Config {
	return Config{
		APIURL:            "https://api.linkedin.com/v2",
		APIVersion:        "202401",
		SearchSite:        "linkedin.com/posts",
		RequestsPerMinute: 30,
		Timeout:           30 * time.Second,
		Retry:             retry.DefaultConfig(),
	}
}

var postSelectors = []string{
	".feed-shared-update-v2__description",
	".attributed-text-segment-list__content",
	"article",
	"main",
}

type Client struct {
	cfg        Config
	scraper    Scraper
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

func New(cfg Config, s Scraper, log logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.APIURL == "" {
		cfg.APIURL = def.APIURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = def.APIVersion
	}
	if cfg.SearchSite == "" {
		cfg.SearchSite = def.SearchSite
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:        cfg,
		scraper:    s,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:        log.With(logger.String("platform", string(models.PlatformLinkedIn))),
	}
}

func (c *Client) Name() string { return "linkedin" }

// Search finds post URLs with a site: search and fetches each post's text.
// Results without an activity id are dropped; posts that cannot be fetched
// are kept with their URL as the only context.
func (c *Client) Search(ctx context.Context, query string) ([]models.Target, error) {
	links, err := c.scraper.Search(ctx, c.cfg.SearchSite, "linkedin.com", query)
	if err != nil {
		return nil, err
	}

	var targets []models.Target
	seen := make(map[string]bool)
	for _, link := range links {
		urn, ok := ActivityURN(link)
		if !ok || seen[urn] {
			continue
		}
		seen[urn] = true

		t := models.Target{
			Platform: models.PlatformLinkedIn,
			ID:       urn,
			URL:      link,
			Title:    titleFromURL(link),
			Query:    query,
		}
		page, err := c.scraper.Fetch(ctx, link, postSelectors...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn("Could not fetch post", logger.String("url", link), logger.Error(err))
		} else {
			t.Body = page.Text
			if page.Title != "" {
				t.Title = page.Title
			}
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// HasCommented lists the post's comments and looks for the actor. Without
// a token and actor nothing can be checked.
func (c *Client) HasCommented(ctx context.Context, t models.Target) (bool, error) {
	if c.cfg.AccessToken == "" || c.cfg.ActorURN == "" {
		return false, nil
	}
	var resp commentsResponse
	if err := c.call(ctx, http.MethodGet, c.commentsURL(t.ID), nil, &resp); err != nil {
		return false, fmt.Errorf("list comments on %s: %w", t.ID, err)
	}
	for _, el := range resp.Elements {
		if el.Actor == c.cfg.ActorURN {
			return true, nil
		}
	}
	return false, nil
}

// Publish comments on the post as the configured actor.
func (c *Client) Publish(ctx context.Context, t models.Target, text string) error {
	if c.cfg.AccessToken == "" || c.cfg.ActorURN == "" {
		return fmt.Errorf("linkedin access token and actor urn are required")
	}
	body := comment{Actor: c.cfg.ActorURN, Object: t.ID}
	body.Message.Text = text

	var created map[string]any
	if err := c.call(ctx, http.MethodPost, c.commentsURL(t.ID), body, &created); err != nil {
		return fmt.Errorf("comment on %s: %w", t.ID, err)
	}
	c.log.Info("Comment submitted", logger.String("target", t.ID))
	return nil
}

func (c *Client) commentsURL(urn string) string {
	return c.cfg.APIURL + "/socialActions/" + url.PathEscape(urn) + "/comments"
}

func (c *Client) call(ctx context.Context, method, endpoint string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	policy := c.cfg.Retry
	if method != http.MethodGet {
		policy = policy.ForWrites()
	}
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
		req.Header.Set("LinkedIn-Version", c.cfg.APIVersion)
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			msg := string(body)
			if len(msg) > 200 {
				msg = msg[:200]
			}
			return &retry.StatusError{Code: resp.StatusCode, Body: msg}
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		return nil
	})
}

var (
	activityInSlug = regexp.MustCompile(`activity-(\d{10,})`)
	activityURN    = regexp.MustCompile(`urn:li:(?:activity|share|ugcPost):(\d{10,})`)
)

// ActivityURN derives the post URN from a post or feed-update URL.
func ActivityURN(link string) (string, bool) {
	decoded, err := url.PathUnescape(link)
	if err != nil {
		decoded = link
	}
	if m := activityURN.FindString(decoded); m != "" {
		return m, true
	}
	if m := activityInSlug.FindStringSubmatch(decoded); len(m) == 2 {
		return "urn:li:activity:" + m[1], true
	}
	return "", false
}

// titleFromURL turns /posts/jane-doe_seo-tips-for-2026-activity-123 into
// "seo tips for 2026".
func titleFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	slug := u.Path[strings.LastIndex(u.Path, "/")+1:]
	if i := strings.Index(slug, "_"); i >= 0 {
		slug = slug[i+1:]
	}
	if i := strings.Index(slug, "-activity-"); i >= 0 {
		slug = slug[:i]
	}
	return strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
}

type comment struct {
	Actor   string `json:"actor"`
	Object  string `json:"object,omitempty"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type commentsResponse struct {
	Elements []comment `json:"elements"`
}
