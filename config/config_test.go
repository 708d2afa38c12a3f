package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LLMProvider:    "openai",
		OpenAIAPIKey:   "sk-test",
		ChunkSizeRatio: 0.02,
		RAGTokenMax:    16000,
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid openai config", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("openai without key fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.OpenAIAPIKey = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("gemini accepts api key", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = "gemini"
		cfg.GoogleAPIKey = "key"
		require.NoError(t, cfg.Validate())
	})

	t.Run("gemini accepts service account", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = "gemini"
		cfg.GoogleApplicationCredentials = "/creds.json"
		cfg.GoogleCloudProject = "my-project"
		require.NoError(t, cfg.Validate())
	})

	t.Run("gemini without credentials fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = "gemini"
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown provider fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLMProvider = "skynet"
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive chunk ratio fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.ChunkSizeRatio = 0
		require.Error(t, cfg.Validate())
	})
}

func TestContextWindow(t *testing.T) {
	cfg := validConfig()
	cfg.ModelContextWindows = map[string]int{"gpt-4o-mini": 128000}

	assert.Equal(t, 128000, cfg.ContextWindow("gpt-4o-mini"))
	assert.Equal(t, 16000, cfg.ContextWindow("unknown-model"), "unknown models fall back to rag_token_max")
}
