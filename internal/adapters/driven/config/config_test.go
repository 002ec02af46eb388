package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)

		assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
		assert.Equal(t, 5, cfg.GitHub.RepoLimit)
		assert.Equal(t, 10, cfg.Search.MaxResults)
		assert.InDelta(t, 0.5, cfg.Search.MinScore, 1e-9)
		assert.True(t, cfg.Memory.Enabled)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
tenant_id = "acme"

[github]
org = "acme"
repo_limit = 12

[search]
max_results = 3
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "acme", cfg.TenantID)
		assert.Equal(t, 12, cfg.GitHub.RepoLimit)
		assert.Equal(t, 3, cfg.Search.MaxResults)
		// Untouched sections keep defaults.
		assert.Equal(t, 30, cfg.GitHub.PRLimit)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, `tenant_id = "from-file"`)
		t.Setenv("TENANT_ID", "from-env")
		t.Setenv("SLACK_CHANNELS", "C01, C02 ,,C03")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.TenantID)
		assert.Equal(t, []string{"C01", "C02", "C03"}, cfg.Slack.Channels)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := writeConfig(t, `tenant_id = [broken`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant_id")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg.TenantID = "acme"
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Postgres.DSN = "postgres://localhost/razorsearch"
	assert.NoError(t, cfg.Validate())
}

func TestFeatureChecks(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.HasGitHub())
	assert.False(t, cfg.HasSlack())
	assert.False(t, cfg.HasLLM())

	cfg.GitHub.Token = "ghp_x"
	cfg.GitHub.Org = "acme"
	cfg.Slack.BotToken = "xoxb-x"
	cfg.Slack.Channels = []string{"C01"}
	cfg.OpenAI.APIKey = "sk-test"
	cfg.OpenAI.LLMModel = "gpt-4o"

	assert.True(t, cfg.HasGitHub())
	assert.True(t, cfg.HasSlack())
	assert.True(t, cfg.HasLLM())
}
