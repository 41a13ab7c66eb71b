package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thinkscotty/outreach/internal/logger"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAI-compatible chat completion types, shared by openai, ollama and chutes.

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Stream         bool              `json:"stream"`
	ResponseFormat *chatResponseType `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseType struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Model   string       `json:"model"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// compatEndpoint is one OpenAI-compatible backend.
type compatEndpoint struct {
	provider string
	url      string // full chat completions URL
	apiKey   string // optional
	model    string
}

// chatCompletion sends req to an OpenAI-compatible endpoint.
func chatCompletion(ctx context.Context, hc *http.Client, log logger.Logger, ep compatEndpoint, req ChatRequest) (*ChatResponse, error) {
	msgs := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	body := chatCompletionRequest{
		Model:       ep.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &chatResponseType{Type: "json_object"}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if ep.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+ep.apiKey)
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed (model=%s, elapsed=%s): %w", ep.provider, ep.model, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errMsg := extractAPIError(respBody)
		if errMsg == "" {
			errMsg = string(respBody)
		}
		log.Error("Chat completion error",
			logger.String("provider", ep.provider),
			logger.Int("status", resp.StatusCode),
			logger.String("model", ep.model),
			logger.String("error", errMsg),
		)
		return nil, fmt.Errorf("%s returned status %d: %s", ep.provider, resp.StatusCode, errMsg)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", ep.provider, err)
	}

	out := &ChatResponse{Model: ep.model, Provider: ep.provider}
	if chatResp.Usage != nil {
		out.TokensUsed = chatResp.Usage.TotalTokens
	}
	if len(chatResp.Choices) > 0 {
		out.Content = chatResp.Choices[0].Message.Content
	}
	log.Debug("Chat completion done",
		logger.String("provider", ep.provider),
		logger.String("model", ep.model),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("tokens", out.TokensUsed),
	)
	return out, nil
}

// extractAPIError pulls a message out of {"error":"..."} or
// {"error":{"message":"..."}} bodies.
func extractAPIError(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	return ""
}

// OpenAIProvider implements Provider for the OpenAI chat completions API.
type OpenAIProvider struct {
	httpClient *http.Client
	settings   SettingsGetter
	log        logger.Logger
}

func NewOpenAIProvider(sg SettingsGetter, log logger.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		settings:   sg,
		log:        log,
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

func (o *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	apiKey := setting(o.settings, "openai_api_key", "")
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	base := setting(o.settings, "openai_url", openAIBaseURL)
	return chatCompletion(ctx, o.httpClient, o.log, compatEndpoint{
		provider: o.Name(),
		url:      strings.TrimRight(base, "/") + "/chat/completions",
		apiKey:   apiKey,
		model:    setting(o.settings, "openai_model", openAIDefaultModel),
	}, req)
}
