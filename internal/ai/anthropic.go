package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/thinkscotty/outreach/internal/logger"
)

const anthropicDefaultModel = "claude-3-5-haiku-latest"

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	httpClient *http.Client
	settings   SettingsGetter
	log        logger.Logger
}

func NewAnthropicProvider(sg SettingsGetter, log logger.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		settings:   sg,
		log:        log,
	}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	apiKey := setting(a.settings, "anthropic_api_key", "")
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured")
	}
	model := setting(a.settings, "anthropic_model", anthropicDefaultModel)

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(a.httpClient),
		option.WithMaxRetries(0),
	}
	if base := setting(a.settings, "anthropic_url", ""); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return &ChatResponse{
		Content:    sb.String(),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		Model:      string(msg.Model),
		Provider:   a.Name(),
	}, nil
}
