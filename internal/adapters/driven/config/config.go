// Package config loads RazorSearch configuration from a TOML file with
// environment variable overrides for secrets. A .env file in the working
// directory is honoured, which keeps local development out of shell
// profiles.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Default file location relative to the user's home directory.
const (
	DefaultDir  = ".razorsearch"
	DefaultFile = "config.toml"
)

// Config is the full application configuration.
type Config struct {
	// TenantID scopes all stored data to one organisation. Required.
	TenantID string `toml:"tenant_id"`

	OpenAI   OpenAIConfig   `toml:"openai"`
	Postgres PostgresConfig `toml:"postgres"`
	GitHub   GitHubConfig   `toml:"github"`
	Slack    SlackConfig    `toml:"slack"`
	Search   SearchConfig   `toml:"search"`
	Memory   MemoryConfig   `toml:"memory"`
}

// OpenAIConfig configures the embedding and LLM services.
type OpenAIConfig struct {
	// APIKey is taken from OPENAI_API_KEY when unset here.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the API endpoint, for Azure or compatible APIs.
	BaseURL string `toml:"base_url"`

	// EmbeddingModel defaults to text-embedding-3-small.
	EmbeddingModel string `toml:"embedding_model"`

	// LLMModel defaults to gpt-4o. The LLM is optional: leave the API key
	// unset to run without enrichment, filtering and summarisation.
	LLMModel string `toml:"llm_model"`
}

// PostgresConfig configures the vector store.
type PostgresConfig struct {
	// DSN is taken from DATABASE_URL when unset here.
	DSN string `toml:"dsn"`
}

// GitHubConfig configures the GitHub connector.
type GitHubConfig struct {
	// Token is taken from GITHUB_TOKEN when unset here.
	Token string `toml:"token"`

	// Org is the organisation whose repositories are ingested.
	Org string `toml:"org"`

	// RepoLimit caps how many repositories one run walks.
	RepoLimit int `toml:"repo_limit"`

	// PRLimit caps pull requests fetched per repository.
	PRLimit int `toml:"pr_limit"`

	// CommitBatchSize is how many commit messages share one document.
	CommitBatchSize int `toml:"commit_batch_size"`
}

// SlackConfig configures the Slack connector.
type SlackConfig struct {
	// BotToken is taken from SLACK_BOT_TOKEN when unset here.
	BotToken string `toml:"bot_token"`

	// Channels lists channel IDs to ingest.
	Channels []string `toml:"channels"`

	// DaysBack limits ingestion to recent messages.
	DaysBack int `toml:"days_back"`

	// MaxMessagesPerChannel caps one channel's fetch.
	MaxMessagesPerChannel int `toml:"max_messages_per_channel"`
}

// SearchConfig tunes the search pipeline.
type SearchConfig struct {
	// MaxResults caps result pages.
	MaxResults int `toml:"max_results"`

	// MinScore is the similarity floor for hits.
	MinScore float64 `toml:"min_score"`

	// EnableEnrichment toggles LLM query rewriting.
	EnableEnrichment bool `toml:"enable_enrichment"`
}

// MemoryConfig tunes the query memory subsystem.
type MemoryConfig struct {
	// Enabled toggles query memory entirely.
	Enabled bool `toml:"enabled"`
}

// defaults mirror the behaviour users get with an empty file.
func defaults() Config {
	return Config{
		OpenAI: OpenAIConfig{
			EmbeddingModel: "text-embedding-3-small",
			LLMModel:       "gpt-4o",
		},
		GitHub: GitHubConfig{
			RepoLimit:       5,
			PRLimit:         30,
			CommitBatchSize: 5,
		},
		Slack: SlackConfig{
			DaysBack:              365,
			MaxMessagesPerChannel: 1000,
		},
		Search: SearchConfig{
			MaxResults:       10,
			MinScore:         0.5,
			EnableEnrichment: true,
		},
		Memory: MemoryConfig{Enabled: true},
	}
}

// DefaultPath returns ~/.razorsearch/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultDir, DefaultFile), nil
}

// Load reads configuration from path. A missing file yields pure
// defaults, so first runs work with environment variables alone.
func Load(path string) (*Config, error) {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()

	cfg := defaults()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("config: resolve default path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fall through to env overrides.
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv lets environment variables override file values. Secrets are
// expected to arrive this way rather than sitting in the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TENANT_ID"); v != "" {
		cfg.TenantID = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_ORG"); v != "" {
		cfg.GitHub.Org = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_CHANNELS"); v != "" {
		cfg.Slack.Channels = splitList(v)
	}
}

// Validate checks the fields every command needs. Connector and LLM
// settings are validated by the commands that use them.
func (c *Config) Validate() error {
	var missing []string
	if c.TenantID == "" {
		missing = append(missing, "tenant_id (or TENANT_ID)")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key (or OPENAI_API_KEY)")
	}
	if c.Postgres.DSN == "" {
		missing = append(missing, "postgres.dsn (or DATABASE_URL)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasGitHub reports whether the GitHub connector is configured.
func (c *Config) HasGitHub() bool {
	return c.GitHub.Token != "" && c.GitHub.Org != ""
}

// HasSlack reports whether the Slack connector is configured.
func (c *Config) HasSlack() bool {
	return c.Slack.BotToken != "" && len(c.Slack.Channels) > 0
}

// HasLLM reports whether LLM-dependent features are available.
func (c *Config) HasLLM() bool {
	return c.OpenAI.APIKey != "" && c.OpenAI.LLMModel != ""
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
