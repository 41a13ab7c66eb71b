// Package config loads outreach.yaml, merges it over the defaults and
// applies secrets from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thinkscotty/outreach/internal/domains"
	"github.com/thinkscotty/outreach/internal/history"
	"github.com/thinkscotty/outreach/internal/linkedin"
	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
	"github.com/thinkscotty/outreach/internal/quora"
	"github.com/thinkscotty/outreach/internal/reddit"
	"github.com/thinkscotty/outreach/internal/relevance"
	"github.com/thinkscotty/outreach/internal/scoring"
	"github.com/thinkscotty/outreach/internal/scraper"
	"github.com/thinkscotty/outreach/internal/selection"
	"github.com/thinkscotty/outreach/internal/session"
	"github.com/thinkscotty/outreach/internal/youtube"
)

type Config struct {
	Logging    logger.Config    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	AI         AIConfig         `yaml:"ai"`
	Scoring    scoring.Config   `yaml:"scoring"`
	Selection  selection.Config `yaml:"selection"`
	Relevance  relevance.Config `yaml:"relevance"`
	Similarity SimilarityConfig `yaml:"similarity"`
	History    history.Config   `yaml:"history"`
	Session    session.Config   `yaml:"session"`
	Scraper    scraper.Config   `yaml:"scraper"`
	Platforms  PlatformsConfig  `yaml:"platforms"`
	Outbox     OutboxConfig     `yaml:"outbox"`
	Domains    domains.Config   `yaml:"domains"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// GenerationRetentionDays prunes generation_log; 0 keeps everything.
	GenerationRetentionDays int `yaml:"generation_retention_days"`
}

type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	// APIKeyHash is the bcrypt hash of the /api bearer key. Empty disables /api.
	APIKeyHash string `yaml:"api_key_hash"`
}

// ProviderConfig holds one AI provider's credentials and model.
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
	Model  string `yaml:"model"`
}

type AIConfig struct {
	Provider          string         `yaml:"provider"`
	FallbackProviders []string       `yaml:"fallback_providers"`
	ReviewProvider    string         `yaml:"review_provider"`
	OpenAI            ProviderConfig `yaml:"openai"`
	Anthropic         ProviderConfig `yaml:"anthropic"`
	Gemini            ProviderConfig `yaml:"gemini"`
	Ollama            ProviderConfig `yaml:"ollama"`
	Chutes            ProviderConfig `yaml:"chutes"`
	// MarkerURL is the link target for on-topic linked mentions.
	MarkerURL   string  `yaml:"marker_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ProviderNames lists the built-in provider names.
var ProviderNames = []string{"openai", "anthropic", "gemini", "ollama", "chutes"}

// Settings flattens the AI section into the database settings keys read
// by the providers. Empty values are left for the caller to skip.
func (a AIConfig) Settings() map[string]string {
	s := map[string]string{
		"ai_provider":           a.Provider,
		"ai_fallback_providers": strings.Join(a.FallbackProviders, ","),
		"ai_review_provider":    a.ReviewProvider,
	}
	for name, p := range map[string]ProviderConfig{
		"openai":    a.OpenAI,
		"anthropic": a.Anthropic,
		"gemini":    a.Gemini,
		"ollama":    a.Ollama,
		"chutes":    a.Chutes,
	} {
		s[name+"_api_key"] = p.APIKey
		s[name+"_url"] = p.URL
		s[name+"_model"] = p.Model
	}
	return s
}

type SimilarityConfig struct {
	Threshold float64 `yaml:"threshold"`
	NGramSize int     `yaml:"ngram_size"`
	// HistoryLimit is how many past comments per platform are compared.
	HistoryLimit int `yaml:"history_limit"`
}

// PlatformConfig is shared by every platform.
type PlatformConfig struct {
	Enabled bool     `yaml:"enabled"`
	Queries []string `yaml:"queries"`
	// AIProvider overrides ai.provider for this platform.
	AIProvider   string `yaml:"ai_provider"`
	Instructions string `yaml:"instructions"`
	// Schedule is a cron spec used by the schedule command.
	Schedule string `yaml:"schedule"`
	// Publisher is "api" or "outbox".
	Publisher string `yaml:"publisher"`
	MaxChars  int    `yaml:"max_chars"`
}

type RedditConfig struct {
	PlatformConfig `yaml:",inline"`
	Client         reddit.Config `yaml:"client"`
}

type YouTubeConfig struct {
	PlatformConfig `yaml:",inline"`
	Client         youtube.Config `yaml:"client"`
}

type LinkedInConfig struct {
	PlatformConfig `yaml:",inline"`
	Client         linkedin.Config `yaml:"client"`
}

type QuoraConfig struct {
	PlatformConfig `yaml:",inline"`
	Client         quora.Config `yaml:"client"`
}

type PlatformsConfig struct {
	Reddit   RedditConfig   `yaml:"reddit"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	LinkedIn LinkedInConfig `yaml:"linkedin"`
	Quora    QuoraConfig    `yaml:"quora"`
}

// Get returns the shared settings of a platform.
func (p PlatformsConfig) Get(platform models.Platform) PlatformConfig {
	switch platform {
	case models.PlatformReddit:
		return p.Reddit.PlatformConfig
	case models.PlatformYouTube:
		return p.YouTube.PlatformConfig
	case models.PlatformLinkedIn:
		return p.LinkedIn.PlatformConfig
	case models.PlatformQuora:
		return p.Quora.PlatformConfig
	}
	return PlatformConfig{}
}

type OutboxConfig struct {
	Path string `yaml:"path"`
}

func DefaultConfig() Config {
	return Config{
		Logging: logger.Config{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Path:                    "./outreach.db",
			GenerationRetentionDays: 90,
		},
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 30,
		},
		AI: AIConfig{
			Provider:    "openai",
			MarkerURL:   "https://kwrds.ai",
			Temperature: 0.7,
			MaxTokens:   300,
		},
		Scoring:   scoring.DefaultConfig(),
		Selection: selection.DefaultConfig(),
		Relevance: relevance.DefaultConfig(),
		Similarity: SimilarityConfig{
			Threshold:    0.6,
			NGramSize:    3,
			HistoryLimit: 500,
		},
		History: history.Config{
			Backend: "sqlite",
			Redis:   history.RedisConfig{KeyPrefix: "outreach", TTL: 180 * 24 * time.Hour},
		},
		Session: session.DefaultConfig(),
		Scraper: scraper.DefaultConfig(),
		Platforms: PlatformsConfig{
			Reddit: RedditConfig{
				PlatformConfig: PlatformConfig{Publisher: "api", Schedule: "0 */6 * * *"},
				Client:         reddit.DefaultConfig(),
			},
			YouTube: YouTubeConfig{
				PlatformConfig: PlatformConfig{Publisher: "api", Schedule: "30 */6 * * *"},
				Client:         youtube.DefaultConfig(),
			},
			LinkedIn: LinkedInConfig{
				PlatformConfig: PlatformConfig{Publisher: "api", Schedule: "0 9 * * 1-5"},
				Client:         linkedin.DefaultConfig(),
			},
			Quora: QuoraConfig{
				PlatformConfig: PlatformConfig{Publisher: "outbox", Schedule: "0 10 * * *"},
				Client:         quora.DefaultConfig(),
			},
		},
		Outbox:  OutboxConfig{Path: "./outbox.jsonl"},
		Domains: domains.DefaultConfig(),
	}
}

// Load reads a YAML config file and merges it over defaults, then loads
// .env files and applies environment overrides. A missing file is not an
// error: the defaults are used and found is false.
func Load(path string) (cfg Config, found bool, err error) {
	cfg = DefaultConfig()

	if err := loadEnvFiles(); err != nil {
		return cfg, false, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		found = true
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, true, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, false, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, found, nil
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env.
// Variables already in the environment win.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"LOG_LEVEL":             &cfg.Logging.Level,
		"DATABASE_PATH":         &cfg.Database.Path,
		"OUTREACH_API_KEY_HASH": &cfg.Server.APIKeyHash,
		"AI_PROVIDER":           &cfg.AI.Provider,
		"OPENAI_API_KEY":        &cfg.AI.OpenAI.APIKey,
		"ANTHROPIC_API_KEY":     &cfg.AI.Anthropic.APIKey,
		"GEMINI_API_KEY":        &cfg.AI.Gemini.APIKey,
		"CHUTES_API_KEY":        &cfg.AI.Chutes.APIKey,
		"OLLAMA_URL":            &cfg.AI.Ollama.URL,
		"REDDIT_USERNAME":       &cfg.Platforms.Reddit.Client.Username,
		"REDDIT_ACCESS_TOKEN":   &cfg.Platforms.Reddit.Client.AccessToken,
		"YOUTUBE_API_KEY":       &cfg.Platforms.YouTube.Client.APIKey,
		"YOUTUBE_ACCESS_TOKEN":  &cfg.Platforms.YouTube.Client.AccessToken,
		"LINKEDIN_ACCESS_TOKEN": &cfg.Platforms.LinkedIn.Client.AccessToken,
		"LINKEDIN_ACTOR_URN":    &cfg.Platforms.LinkedIn.Client.ActorURN,
		"QUORA_USERNAME":        &cfg.Platforms.Quora.Client.Username,
		"REDIS_ADDRESS":         &cfg.History.Redis.Address,
		"REDIS_PASSWORD":        &cfg.History.Redis.Password,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}
