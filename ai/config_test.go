package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, "llama3.2", cfg.ChatModel)
	assert.Equal(t, 0.7, cfg.Temperature)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithProvider(ProviderOllama),
			WithHost("http://ollama:11434"),
			WithEmbeddingModel("mxbai-embed-large"),
			WithChatModel("mistral"),
			WithAPIKey("secret"),
			WithTemperature(0.1),
		)

		assert.Equal(t, ProviderOllama, cfg.Provider)
		assert.Equal(t, "http://ollama:11434", cfg.ChatHost)
		assert.Equal(t, "mxbai-embed-large", cfg.EmbeddingModel)
		assert.Equal(t, "mistral", cfg.ChatModel)
		assert.Equal(t, "secret", cfg.APIKey)
		assert.Equal(t, 0.1, cfg.Temperature)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name          string
		provider      string
		embeddingHost string
		chatHost      string
		wantProvider  string
		wantEmbedding string
		wantChat      string
	}{
		{
			name:          "openai already has /v1",
			provider:      ProviderOpenAI,
			embeddingHost: "http://localhost:11434/v1",
			chatHost:      "http://localhost:11434/v1",
			wantProvider:  ProviderOpenAI,
			wantEmbedding: "http://localhost:11434/v1",
			wantChat:      "http://localhost:11434/v1",
		},
		{
			name:          "openai missing /v1 with trailing slash",
			provider:      ProviderOpenAI,
			embeddingHost: "http://localhost:11434/",
			chatHost:      "http://localhost:11434",
			wantProvider:  ProviderOpenAI,
			wantEmbedding: "http://localhost:11434/v1",
			wantChat:      "http://localhost:11434/v1",
		},
		{
			name:          "empty provider defaults to openai",
			provider:      "",
			embeddingHost: "http://embed:8080",
			chatHost:      "",
			wantProvider:  ProviderOpenAI,
			wantEmbedding: "http://embed:8080/v1",
			wantChat:      "",
		},
		{
			name:          "ollama strips /v1",
			provider:      " Ollama ",
			embeddingHost: "http://localhost:11434/v1",
			chatHost:      "http://localhost:11434/v1/",
			wantProvider:  ProviderOllama,
			wantEmbedding: "http://localhost:11434",
			wantChat:      "http://localhost:11434",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Provider:      tt.provider,
				EmbeddingHost: tt.embeddingHost,
				ChatHost:      tt.chatHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.wantProvider, cfg.Provider)
			assert.Equal(t, tt.wantEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.wantChat, cfg.ChatHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Provider:       ProviderOpenAI,
			EmbeddingHost:  "http://localhost:11434",
			ChatHost:       "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			ChatModel:      "llama3.2",
			Temperature:    0.7,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()

		err := cfg.Validate()
		require.NoError(t, err)

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"unknown provider", func(c *Config) { c.Provider = "bedrock" }, "Provider"},
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing chat host", func(c *Config) { c.ChatHost = "" }, "ChatHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"missing chat model", func(c *Config) { c.ChatModel = "" }, "ChatModel"},
		{"negative temperature", func(c *Config) { c.Temperature = -0.5 }, "Temperature"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "Temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
