package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/thinkscotty/outreach/internal/logger"
)

const (
	chutesBaseURL      = "https://llm.chutes.ai/v1/chat/completions"
	chutesDefaultModel = "deepseek-ai/DeepSeek-V3"
)

// ChutesProvider implements Provider for the Chutes.ai OpenAI-compatible API.
type ChutesProvider struct {
	httpClient *http.Client
	settings   SettingsGetter
	log        logger.Logger
}

// NewChutesProvider creates a Chutes.ai provider.
func NewChutesProvider(sg SettingsGetter, log logger.Logger) *ChutesProvider {
	return &ChutesProvider{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		settings:   sg,
		log:        log,
	}
}

func (c *ChutesProvider) Name() string { return "chutes" }

func (c *ChutesProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	apiKey := setting(c.settings, "chutes_api_key", "")
	if apiKey == "" {
		return nil, fmt.Errorf("chutes API key not configured")
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("chutes request skipped: %w", ctx.Err())
	}
	return chatCompletion(ctx, c.httpClient, c.log, compatEndpoint{
		provider: c.Name(),
		url:      setting(c.settings, "chutes_url", chutesBaseURL),
		apiKey:   apiKey,
		model:    setting(c.settings, "chutes_model", chutesDefaultModel),
	}, req)
}
