package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/scoring"
)

type mapSettings map[string]string

func (m mapSettings) GetSetting(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

type fakeProvider struct {
	name    string
	content string
	err     error
	calls   int
	last    ChatRequest
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &ChatResponse{Content: f.content, TokensUsed: 12, Model: f.name + "-model", Provider: f.name}, nil
}

var redditTarget = models.Target{
	Platform: models.PlatformReddit,
	ID:       "t3_abc",
	Title:    "How do you do keyword research on a budget?",
	Body:     "Looking for a cheap workflow.",
}

func TestGenerateComment_UsesGlobalProvider(t *testing.T) {
	openai := &fakeProvider{name: "openai", content: `"Clustering by intent saved me hours."`}
	ollama := &fakeProvider{name: "ollama", content: "unused"}
	c := NewClientWithProviders(mapSettings{"ai_provider": "openai"}, logger.NewNop(), openai, ollama)

	gen, err := c.GenerateComment(context.Background(), CommentOpts{Target: redditTarget, Marker: "kwrds.ai"})
	require.NoError(t, err)
	assert.Equal(t, "Clustering by intent saved me hours.", gen.Text)
	assert.Equal(t, "openai", gen.Provider)
	assert.Equal(t, 12, gen.TokensUsed)
	assert.Equal(t, 300, openai.last.MaxTokens)
	assert.Zero(t, ollama.calls)
}

func TestGenerateComment_OverrideWins(t *testing.T) {
	openai := &fakeProvider{name: "openai", content: "from openai"}
	gemini := &fakeProvider{name: "gemini", content: "from gemini"}
	c := NewClientWithProviders(mapSettings{"ai_provider": "openai"}, nil, openai, gemini)

	gen, err := c.GenerateComment(context.Background(), CommentOpts{Target: redditTarget, Provider: "gemini"})
	require.NoError(t, err)
	assert.Equal(t, "from gemini", gen.Text)
	assert.Zero(t, openai.calls)
}

func TestGenerateComment_FallsBack(t *testing.T) {
	openai := &fakeProvider{name: "openai", err: errors.New("rate limited")}
	empty := &fakeProvider{name: "gemini", content: "   "}
	ollama := &fakeProvider{name: "ollama", content: "from ollama"}
	sg := mapSettings{"ai_provider": "openai", "ai_fallback_providers": "gemini, unknown, ollama, openai"}
	c := NewClientWithProviders(sg, nil, openai, empty, ollama)

	gen, err := c.GenerateComment(context.Background(), CommentOpts{Target: redditTarget})
	require.NoError(t, err)
	assert.Equal(t, "ollama", gen.Provider)
	assert.Equal(t, 1, openai.calls)
	assert.Equal(t, 1, empty.calls)
}

func TestGenerateComment_AllFail(t *testing.T) {
	openai := &fakeProvider{name: "openai", err: errors.New("down")}
	gemini := &fakeProvider{name: "gemini", content: ""}
	c := NewClientWithProviders(mapSettings{"ai_fallback_providers": "gemini"}, nil, openai, gemini)

	_, err := c.GenerateComment(context.Background(), CommentOpts{Target: redditTarget})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.ErrorContains(t, err, "down")
}

func TestGenerateComment_EmptyAfterCleaning(t *testing.T) {
	openai := &fakeProvider{name: "openai", content: `""`}
	c := NewClientWithProviders(mapSettings{}, nil, openai)

	_, err := c.GenerateComment(context.Background(), CommentOpts{Target: redditTarget})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestReviewComment(t *testing.T) {
	good := &fakeProvider{name: "openai", content: "```json\n" + `{"scores": {"relevance": 8, "professionalism": 8, "naturalness": 7, "value_added": 6, "risk_level": 3}, "should_revise": false, "reason": "fits"}` + "\n```"}
	c := NewClientWithProviders(mapSettings{}, nil, good)

	rv, err := c.ReviewComment(context.Background(), redditTarget, "Some comment")
	require.NoError(t, err)
	assert.Equal(t, 3.0, rv.Scores.RiskLevel)
	assert.True(t, good.last.JSONMode)

	bad := &fakeProvider{name: "openai", content: `{"scores": {"relevance": 8}, "should_revise": False}`}
	c = NewClientWithProviders(mapSettings{}, nil, bad)
	_, err = c.ReviewComment(context.Background(), redditTarget, "Some comment")
	assert.ErrorIs(t, err, scoring.ErrMalformedReview)
}

func TestCommentGenerator(t *testing.T) {
	openai := &fakeProvider{name: "openai", content: "A useful comment about intent clustering."}
	c := NewClientWithProviders(mapSettings{}, nil, openai)
	g := &CommentGenerator{
		Client:  c,
		Opts:    CommentOpts{Marker: "kwrds.ai", MarkerURL: "https://www.kwrds.ai"},
		OnTopic: func(models.Target) bool { return true },
	}

	cand, err := g.Generate(context.Background(), redditTarget)
	require.NoError(t, err)
	assert.Equal(t, "A useful comment about intent clustering.", cand.Text)
	assert.Equal(t, "openai-model", cand.Model)
	assert.Contains(t, openai.last.Messages[0].Content, "[kwrds.ai](https://www.kwrds.ai)")
}
