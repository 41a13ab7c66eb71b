package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinkscotty/outreach/internal/models"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, found, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, DefaultConfig().Database.Path, cfg.Database.Path)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "outreach.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
ai:
  provider: anthropic
  fallback_providers: [openai, ollama]
session:
  pause_between_targets: 5s
  max_targets: 3
platforms:
  reddit:
    enabled: true
    queries: ["keyword research tool"]
    ai_provider: gemini
    client:
      username: kwrdsbot
      subreddits: [SEO, bigseo]
`), 0o644))

	cfg, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format, "unset keys keep defaults")
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, 5*time.Second, cfg.Session.PauseBetweenTargets)
	assert.Equal(t, 3, cfg.Session.MaxTargets)
	assert.Equal(t, 5*time.Minute, cfg.Session.PauseBetweenQueries)

	reddit := cfg.Platforms.Reddit
	assert.True(t, reddit.Enabled)
	assert.Equal(t, []string{"keyword research tool"}, reddit.Queries)
	assert.Equal(t, "gemini", reddit.AIProvider)
	assert.Equal(t, "api", reddit.Publisher)
	assert.Equal(t, "kwrdsbot", reddit.Client.Username)
	assert.Equal(t, "https://oauth.reddit.com", reddit.Client.OAuthURL)
	assert.Equal(t, []string{"SEO", "bigseo"}, reddit.Client.Subreddits)

	assert.Equal(t, reddit.PlatformConfig, cfg.Platforms.Get(models.PlatformReddit))
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("REDDIT_ACCESS_TOKEN", "tok")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	cfg, _, err := Load("missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "tok", cfg.Platforms.Reddit.Client.AccessToken)
	assert.Equal(t, "localhost:6379", cfg.History.Redis.Address)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.env"), []byte("GEMINI_API_KEY=from-file\n"), 0o644))
	t.Setenv("ENV_FILE", "custom.env")
	t.Setenv("GEMINI_API_KEY", "")
	require.NoError(t, os.Unsetenv("GEMINI_API_KEY"))

	cfg, _, err := Load("missing.yaml")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.AI.Gemini.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [unclosed"), 0o644))

	_, _, err := Load(path)
	require.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	cfg.AI.Provider = "skynet"
	cfg.Platforms.Reddit.Enabled = true
	cfg.Platforms.Quora.Publisher = "api"
	cfg.Platforms.YouTube.Schedule = "every tuesday"
	cfg.Similarity.Threshold = 0

	err := cfg.Validate()
	require.Error(t, err)

	var fields []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *ValidationError
		if errors.As(e, &ve) {
			fields = append(fields, ve.Field)
		}
	}
	assert.ElementsMatch(t, []string{
		"logging.level",
		"ai.provider",
		"platforms.reddit.queries",
		"platforms.quora.publisher",
		"platforms.youtube.schedule",
		"similarity.threshold",
	}, fields)
}

func TestAIConfig_Settings(t *testing.T) {
	ai := DefaultConfig().AI
	ai.FallbackProviders = []string{"gemini", "ollama"}
	ai.OpenAI.APIKey = "sk"
	ai.Ollama.URL = "http://ollama:11434"

	s := ai.Settings()
	assert.Equal(t, "openai", s["ai_provider"])
	assert.Equal(t, "gemini,ollama", s["ai_fallback_providers"])
	assert.Equal(t, "sk", s["openai_api_key"])
	assert.Equal(t, "http://ollama:11434", s["ollama_url"])
	assert.Empty(t, s["anthropic_api_key"])
}
