// Package youtube searches videos and posts top-level comments through the
// YouTube Data API v3.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/retry"
)

// ErrNoChannel is returned when the account's channel cannot be resolved.
var ErrNoChannel = errors.New("youtube channel id is unknown")

// Config configures the YouTube client.
type Config struct {
	BaseURL string `yaml:"base_url"`
	// APIKey is enough for search and listing.
	APIKey string `yaml:"api_key"`
	// AccessToken is a pre-issued OAuth token with the youtube.force-ssl
	// scope, required for posting.
	AccessToken string `yaml:"access_token"`
	// ChannelID is the posting account's channel. When empty it is looked
	// up with channels.list?mine=true.
	ChannelID         string        `yaml:"channel_id"`
	MaxResults        int           `yaml:"max_results"`
	Order             string        `yaml:"order"`
	VerifyDelay       time.Duration `yaml:"verify_delay"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	Retry             retry.Config  `yaml:"retry"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://www.googleapis.com/youtube/v3",
		MaxResults:        10,
		Order:             "date",
		VerifyDelay:       10 * time.Second,
		RequestsPerMinute: 60,
		Timeout:           30 * time.Second,
		Retry:             retry.DefaultConfig(),
	}
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
	sleep      func(context.Context, time.Duration) error

	mu        sync.Mutex
	channelID string
}

func New(cfg Config, log logger.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.Order == "" {
		cfg.Order = def.Order
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:        log.With(logger.String("platform", string(models.PlatformYouTube))),
		sleep:      sleepContext,
		channelID:  cfg.ChannelID,
	}
}

func (c *Client) Name() string { return "youtube" }

// Search returns recent videos for query.
func (c *Client) Search(ctx context.Context, query string) ([]models.Target, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", c.cfg.Order)
	params.Set("maxResults", fmt.Sprint(c.cfg.MaxResults))

	var resp searchResponse
	if err := c.call(ctx, http.MethodGet, "/search", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	targets := make([]models.Target, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		targets = append(targets, models.Target{
			Platform: models.PlatformYouTube,
			ID:       item.ID.VideoID,
			URL:      "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			Title:    item.Snippet.Title,
			Body:     item.Snippet.Description,
			Author:   item.Snippet.ChannelTitle,
			Channel:  item.Snippet.ChannelID,
			Query:    query,
		})
	}
	return targets, nil
}

// HasCommented reports whether a top-level comment on the video was
// written by the account's channel.
func (c *Client) HasCommented(ctx context.Context, t models.Target) (bool, error) {
	channel, err := c.ownChannel(ctx)
	if err != nil {
		return false, err
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", t.ID)
	params.Set("maxResults", "100")

	var resp commentThreadsResponse
	if err := c.call(ctx, http.MethodGet, "/commentThreads", params, nil, &resp); err != nil {
		return false, fmt.Errorf("list comments on %s: %w", t.ID, err)
	}
	for _, item := range resp.Items {
		if item.Snippet.TopLevelComment.Snippet.AuthorChannelID.Value == channel {
			return true, nil
		}
	}
	return false, nil
}

// Publish inserts a top-level comment, then checks after VerifyDelay that
// it is visible. A comment that does not show up is logged, not failed:
// it may still be held for review.
func (c *Client) Publish(ctx context.Context, t models.Target, text string) error {
	if c.cfg.AccessToken == "" {
		return fmt.Errorf("youtube access token is not configured")
	}

	var body commentThread
	body.Snippet.VideoID = t.ID
	body.Snippet.TopLevelComment.Snippet.TextOriginal = text

	params := url.Values{}
	params.Set("part", "snippet")
	var created commentThread
	if err := c.call(ctx, http.MethodPost, "/commentThreads", params, body, &created); err != nil {
		return fmt.Errorf("insert comment on %s: %w", t.ID, err)
	}
	c.log.Info("Comment submitted", logger.String("target", t.ID), logger.String("comment_id", created.ID))

	if c.cfg.VerifyDelay <= 0 {
		return nil
	}
	if err := c.sleep(ctx, c.cfg.VerifyDelay); err != nil {
		// Already posted; only the verification is skipped.
		return nil
	}
	ok, err := c.HasCommented(ctx, t)
	switch {
	case err != nil:
		c.log.Warn("Could not verify comment", logger.String("target", t.ID), logger.Error(err))
	case !ok:
		c.log.Warn("Comment not visible yet, it may be held for review", logger.String("target", t.ID))
	default:
		c.log.Debug("Comment verified", logger.String("target", t.ID))
	}
	return nil
}

func (c *Client) ownChannel(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channelID != "" {
		return c.channelID, nil
	}
	if c.cfg.AccessToken == "" {
		return "", ErrNoChannel
	}

	params := url.Values{}
	params.Set("part", "id")
	params.Set("mine", "true")
	var resp channelsResponse
	if err := c.call(ctx, http.MethodGet, "/channels", params, nil, &resp); err != nil {
		return "", fmt.Errorf("look up own channel: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ID == "" {
		return "", ErrNoChannel
	}
	c.channelID = resp.Items[0].ID
	return c.channelID, nil
}

func (c *Client) call(ctx context.Context, method, path string, params url.Values, in, out any) error {
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}
	endpoint := c.cfg.BaseURL + path + "?" + params.Encode()

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
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &retry.StatusError{Code: resp.StatusCode, Body: apiErrorReason(body)}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
		return nil
	})
}

// apiErrorReason pulls "reason: message" out of a Google API error body.
func apiErrorReason(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		if len(body) > 200 {
			body = body[:200]
		}
		return string(body)
	}
	if len(e.Error.Errors) > 0 && e.Error.Errors[0].Reason != "" {
		return e.Error.Errors[0].Reason + ": " + e.Error.Message
	}
	return e.Error.Message
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Data API v3 types

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelID    string `json:"channelId"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type commentThread struct {
	ID      string `json:"id,omitempty"`
	Snippet struct {
		VideoID         string `json:"videoId"`
		TopLevelComment struct {
			Snippet struct {
				TextOriginal string `json:"textOriginal,omitempty"`
			} `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

type commentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					AuthorChannelID struct {
						Value string `json:"value"`
					} `json:"authorChannelId"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

type channelsResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}
