package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
[server]
port = "9090"

[llm]
provider = "claude"
model = "claude-3-5-sonnet-latest"

[youtube]
languages = ["en-GB"]

[storage]
driver = "sqlite"
sqlite_path = "/tmp/parliq.db"

[extraction]
strategy = "pattern"

[ingest]
concurrency = 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.LLM.Model)
	assert.Equal(t, []string{"en-GB"}, cfg.YouTube.Languages)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "pattern", cfg.Extraction.Strategy)
	assert.Equal(t, 8, cfg.Ingest.Concurrency)

	// defaults fill what the file leaves out
	assert.Equal(t, 30*time.Second, cfg.Chat.Timeout())
	assert.Equal(t, 10, cfg.Ingest.MaxChannelVideos)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "llm", cfg.Extraction.Strategy)
	assert.Equal(t, []string{"en", "en-GB"}, cfg.YouTube.Languages)
	assert.Equal(t, 3, cfg.Ingest.Concurrency)
	assert.False(t, cfg.Graph.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "openai"
api_key = "from-file"
`)
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "yt-key", cfg.YouTube.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad toml":         "[server\nport=1",
		"unknown driver":   "[storage]\ndriver = \"mongo\"",
		"postgres no url":  "[storage]\ndriver = \"postgres\"",
		"unknown strategy": "[extraction]\nstrategy = \"magic\"",
		"bad concurrency":  "[ingest]\nconcurrency = -1",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
