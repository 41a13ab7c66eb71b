// Package reddit searches Reddit for posts, checks whether the account has
// already replied and submits comments with a pre-issued OAuth token.
package reddit

import (
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
)

// Config configures the Reddit client.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	OAuthURL  string `yaml:"oauth_url"`
	UserAgent string `yaml:"user_agent"`
	// Username is the account comments are posted as.
	Username    string `yaml:"username"`
	AccessToken string `yaml:"access_token"`
	// Subreddits restricts search; empty searches all of Reddit.
	Subreddits []string `yaml:"subreddits"`
	// Sort and Time are passed to the search listing.
	Sort              string        `yaml:"sort"`
	Time              string        `yaml:"time"`
	SearchLimit       int           `yaml:"search_limit"`
	MinBodyWords      int           `yaml:"min_body_words"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	Retry             retry.Config  `yaml:"retry"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://www.reddit.com",
		OAuthURL:          "https://oauth.reddit.com",
		UserAgent:         "outreach/1.0 (+https://github.com/thinkscotty/outreach)",
		Sort:              "new",
		Time:              "week",
		SearchLimit:       25,
		RequestsPerMinute: 50,
		Timeout:           30 * time.Second,
		Retry:             retry.DefaultConfig(),
	}
}

// Client talks to Reddit's JSON endpoints. Every request waits on a
// shared rate limiter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

func New(cfg Config, log logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = def.OAuthURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = def.SearchLimit
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.OAuthURL = strings.TrimRight(cfg.OAuthURL, "/")
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:        log.With(logger.String("platform", string(models.PlatformReddit))),
	}
}

// Name identifies the publisher.
func (c *Client) Name() string { return "reddit" }

// Search runs a listing search for query, once per configured subreddit
// (or site-wide). Link posts are kept; a body shorter than MinBodyWords
// drops only self posts.
func (c *Client) Search(ctx context.Context, query string) ([]models.Target, error) {
	paths := []string{"/search.json"}
	if len(c.cfg.Subreddits) > 0 {
		paths = paths[:0]
		for _, s := range c.cfg.Subreddits {
			sub, err := extractSubreddit(s)
			if err != nil {
				return nil, err
			}
			paths = append(paths, "/r/"+sub+"/search.json")
		}
	}

	seen := make(map[string]bool)
	var targets []models.Target
	for _, p := range paths {
		params := url.Values{}
		params.Set("q", query)
		params.Set("sort", c.cfg.Sort)
		params.Set("t", c.cfg.Time)
		params.Set("type", "link")
		params.Set("limit", fmt.Sprint(c.cfg.SearchLimit))
		if strings.HasPrefix(p, "/r/") {
			params.Set("restrict_sr", "1")
		}

		var listing redditListing
		if err := c.getJSON(ctx, c.cfg.BaseURL+p+"?"+params.Encode(), &listing); err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}

		for _, child := range listing.Data.Children {
			post := child.Data
			if post.Name == "" || seen[post.Name] {
				continue
			}
			if post.IsSelf && c.cfg.MinBodyWords > 0 && len(strings.Fields(post.Selftext)) < c.cfg.MinBodyWords {
				continue
			}
			if post.Locked || post.Archived {
				continue
			}
			seen[post.Name] = true
			targets = append(targets, models.Target{
				Platform: models.PlatformReddit,
				ID:       post.Name,
				URL:      "https://www.reddit.com" + post.Permalink,
				Title:    post.Title,
				Body:     post.Selftext,
				Author:   post.Author,
				Channel:  post.Subreddit,
				Query:    query,
			})
		}
	}

	c.log.Debug("Search finished", logger.String("query", query), logger.Int("targets", len(targets)))
	return targets, nil
}

// HasCommented walks the post's comment tree looking for the configured
// username. Without a username nothing can be checked and the answer is
// false.
func (c *Client) HasCommented(ctx context.Context, t models.Target) (bool, error) {
	if c.cfg.Username == "" {
		return false, nil
	}

	var listings []commentListing
	endpoint := fmt.Sprintf("%s/comments/%s.json?limit=500", c.cfg.BaseURL, strings.TrimPrefix(t.ID, "t3_"))
	if err := c.getJSON(ctx, endpoint, &listings); err != nil {
		return false, fmt.Errorf("fetch comments for %s: %w", t.ID, err)
	}
	if len(listings) < 2 {
		return false, nil
	}
	return containsAuthor(listings[1].Data.Children, c.cfg.Username), nil
}

// Publish submits a top-level comment on the post.
func (c *Client) Publish(ctx context.Context, t models.Target, text string) error {
	if c.cfg.AccessToken == "" {
		return fmt.Errorf("reddit access token is not configured")
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", t.ID)
	form.Set("text", text)

	var resp submitResponse
	err := retry.Do(ctx, c.cfg.Retry.ForWrites(), func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL+"/api/comment", strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "bearer "+c.cfg.AccessToken)
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		return c.do(req, &resp)
	})
	if err != nil {
		return fmt.Errorf("submit comment on %s: %w", t.ID, err)
	}
	if len(resp.JSON.Errors) > 0 {
		return fmt.Errorf("submit comment on %s: reddit rejected comment: %v", t.ID, resp.JSON.Errors[0])
	}

	c.log.Info("Comment submitted", logger.String("target", t.ID))
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		return c.do(req, out)
	})
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("not found: %w", &retry.StatusError{Code: resp.StatusCode})
	case http.StatusForbidden:
		return fmt.Errorf("private, quarantined or banned: %w", &retry.StatusError{Code: resp.StatusCode})
	default:
		return &retry.StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse reddit json: %w", err)
	}
	return nil
}

func containsAuthor(children []commentChild, username string) bool {
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		if strings.EqualFold(child.Data.Author, username) {
			return true
		}
		// replies is "" when empty and a listing otherwise.
		if len(child.Data.Replies) == 0 || child.Data.Replies[0] != '{' {
			continue
		}
		var nested commentListing
		if err := json.Unmarshal(child.Data.Replies, &nested); err != nil {
			continue
		}
		if containsAuthor(nested.Data.Children, username) {
			return true
		}
	}
	return false
}

var subredditPatterns = []*regexp.Regexp{
	regexp.MustCompile(`reddit\.com/r/([a-zA-Z0-9_]+)`),
	regexp.MustCompile(`^/?r/([a-zA-Z0-9_]+)`),
	regexp.MustCompile(`^([a-zA-Z0-9_]+)$`),
}

func extractSubreddit(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, re := range subredditPatterns {
		if m := re.FindStringSubmatch(s); len(m) >= 2 {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("could not extract subreddit from %q", s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Reddit JSON API types

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	IsSelf     bool    `json:"is_self"`
	Locked     bool    `json:"locked"`
	Archived   bool    `json:"archived"`
	Permalink  string  `json:"permalink"`
	Subreddit  string  `json:"subreddit"`
	Author     string  `json:"author"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

type commentListing struct {
	Data struct {
		Children []commentChild `json:"children"`
	} `json:"data"`
}

type commentChild struct {
	Kind string `json:"kind"`
	Data struct {
		Author  string          `json:"author"`
		Body    string          `json:"body"`
		Replies json.RawMessage `json:"replies"`
	} `json:"data"`
}

type submitResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
	} `json:"json"`
}
