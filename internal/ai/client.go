package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/thinkscotty/outreach/internal/fallback"
	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/scoring"
)

const defaultProvider = "openai"

// Client is the main AI entry point. It routes requests through the
// configured provider chain and handles prompt building and response parsing.
type Client struct {
	providers map[string]Provider
	settings  SettingsGetter
	log       logger.Logger
}

// NewClient creates a client with every built-in provider.
func NewClient(sg SettingsGetter, log logger.Logger) *Client {
	return NewClientWithProviders(sg, log,
		NewOpenAIProvider(sg, log),
		NewAnthropicProvider(sg, log),
		NewGeminiProvider(sg, log),
		NewOllamaProvider(sg, log),
		NewChutesProvider(sg, log),
	)
}

// NewClientWithProviders creates a client with an explicit provider set.
func NewClientWithProviders(sg SettingsGetter, log logger.Logger, providers ...Provider) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Client{providers: make(map[string]Provider, len(providers)), settings: sg, log: log}
	for _, p := range providers {
		c.providers[p.Name()] = p
	}
	return c
}

// chain returns the providers to try in order: the override or the
// ai_provider setting, then ai_fallback_providers. Unknown names are skipped.
func (c *Client) chain(override string) []Provider {
	names := []string{override}
	if override == "" {
		names[0] = setting(c.settings, "ai_provider", defaultProvider)
	}
	names = append(names, strings.Split(setting(c.settings, "ai_fallback_providers", ""), ",")...)

	seen := make(map[string]bool)
	var out []Provider
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		p, ok := c.providers[name]
		if !ok {
			c.log.Warn("Unknown AI provider in chain", logger.String("provider", name))
			continue
		}
		out = append(out, p)
	}
	return out
}

// complete sends req down the provider chain and returns the first non-empty answer.
func (c *Client) complete(ctx context.Context, override string, req ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse
	_, err := fallback.First(ctx, c.chain(override), func(ctx context.Context, p Provider) error {
		r, err := p.Chat(ctx, req)
		if err != nil {
			c.log.Warn("AI provider failed", logger.String("provider", p.Name()), logger.Error(err))
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
		if strings.TrimSpace(r.Content) == "" {
			return fmt.Errorf("%s: %w", p.Name(), ErrEmptyResponse)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GenerateComment produces one candidate comment for a target.
func (c *Client) GenerateComment(ctx context.Context, opts CommentOpts) (Generation, error) {
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}

	resp, err := c.complete(ctx, opts.Provider, ChatRequest{
		Messages:    []Message{{Role: "user", Content: BuildCommentPrompt(opts)}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return Generation{}, fmt.Errorf("generate comment: %w", err)
	}

	gen := Generation{
		Text:       CleanComment(resp.Content),
		Provider:   resp.Provider,
		Model:      resp.Model,
		TokensUsed: resp.TokensUsed,
	}
	if gen.Text == "" {
		return gen, fmt.Errorf("generate comment: %s: %w", resp.Provider, ErrEmptyResponse)
	}
	return gen, nil
}

// ReviewComment asks the provider chain to judge a comment. The answer is
// decoded strictly.
func (c *Client) ReviewComment(ctx context.Context, t models.Target, text string) (scoring.Review, error) {
	resp, err := c.complete(ctx, setting(c.settings, "ai_review_provider", ""), ChatRequest{
		Messages:    []Message{{Role: "user", Content: BuildReviewPrompt(t, text)}},
		Temperature: 0.2,
		MaxTokens:   400,
		JSONMode:    true,
	})
	if err != nil {
		return scoring.Review{}, fmt.Errorf("review comment: %w", err)
	}
	rv, err := scoring.DecodeReview([]byte(resp.Content))
	if err != nil {
		c.log.Debug("Unparseable review", logger.String("provider", resp.Provider), logger.String("response", resp.Content))
		return scoring.Review{}, err
	}
	return rv, nil
}

// CommentGenerator adapts the client to the selection loop for one platform.
type CommentGenerator struct {
	Client *Client
	// Opts is the template; Target and OnTopic are filled per call.
	Opts    CommentOpts
	OnTopic func(models.Target) bool
}

func (g *CommentGenerator) Generate(ctx context.Context, t models.Target) (models.Candidate, error) {
	opts := g.Opts
	opts.Target = t
	if g.OnTopic != nil {
		opts.OnTopic = g.OnTopic(t)
	}
	gen, err := g.Client.GenerateComment(ctx, opts)
	if err != nil {
		return models.Candidate{TokensUsed: gen.TokensUsed}, err
	}
	return models.Candidate{
		Text:       gen.Text,
		Provider:   gen.Provider,
		Model:      gen.Model,
		TokensUsed: gen.TokensUsed,
	}, nil
}
