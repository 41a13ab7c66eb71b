package ai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/thinkscotty/outreach/internal/logger"
)

const (
	ollamaDefaultURL   = "http://localhost:11434"
	ollamaDefaultModel = "llama3.2"
)

// OllamaProvider implements Provider for Ollama's OpenAI-compatible API.
type OllamaProvider struct {
	httpClient *http.Client
	settings   SettingsGetter
	log        logger.Logger
}

// NewOllamaProvider creates an Ollama provider.
func NewOllamaProvider(sg SettingsGetter, log logger.Logger) *OllamaProvider {
	return &OllamaProvider{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		settings:   sg,
		log:        log,
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

func (o *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	base := setting(o.settings, "ollama_url", ollamaDefaultURL)
	return chatCompletion(ctx, o.httpClient, o.log, compatEndpoint{
		provider: o.Name(),
		url:      strings.TrimRight(base, "/") + "/v1/chat/completions",
		model:    setting(o.settings, "ollama_model", ollamaDefaultModel),
	}, req)
}
