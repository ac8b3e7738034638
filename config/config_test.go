package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Duration(0), cfg.Server.QueryTimeout)
	assert.Equal(t, splitter.DefaultOptions(), cfg.Splitter.Options())
	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, 4, cfg.Store.TopK)
	assert.Equal(t, ai.ProviderOpenAI, cfg.AI.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"negative timeout", func(c *Config) { c.Server.QueryTimeout = -time.Second }},
		{"empty resource", func(c *Config) { c.Ingest.Resource = "" }},
		{"zero chunk size", func(c *Config) { c.Splitter.ChunkSize = 0 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"missing path", func(c *Config) { c.Store.Path = "" }},
		{"chromem without collection", func(c *Config) {
			c.Store.Backend = BackendChromem
			c.Store.Collection = ""
		}},
		{"zero batch size", func(c *Config) { c.Store.BatchSize = 0 }},
		{"zero top k", func(c *Config) { c.Store.TopK = 0 }},
		{"threshold above one", func(c *Config) { c.Store.ScoreThreshold = 1.5 }},
		{"negative pool size", func(c *Config) { c.Store.PoolSize = -1 }},
		{"bad provider", func(c *Config) { c.AI.Provider = "bard" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("in memory needs no path", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Path = ""
		cfg.Store.InMemory = true
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	expected := Default()
	require.NoError(t, expected.Validate())
	assert.Equal(t, expected, cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrag.yaml")
	content := `
server:
  addr: "127.0.0.1:9000"
  query_timeout: 30s
ingest:
  resource: docs/
splitter:
  chunk_size: 256
store:
  backend: chromem
  in_memory: true
  top_k: 8
  score_threshold: 0.25
ai:
  provider: ollama
  chat_host: http://localhost:11434/v1
  embedding_host: http://localhost:11434
  chat_model: mistral
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.QueryTimeout)
	assert.Equal(t, "1M", cfg.Server.BodyLimit)
	assert.Equal(t, "docs/", cfg.Ingest.Resource)
	assert.Equal(t, 256, cfg.Splitter.ChunkSize)
	assert.Equal(t, 350, cfg.Splitter.MinChunkSizeChars)
	assert.Equal(t, BackendChromem, cfg.Store.Backend)
	assert.True(t, cfg.Store.InMemory)
	assert.Equal(t, 8, cfg.Store.TopK)
	assert.InDelta(t, 0.25, cfg.Store.ScoreThreshold, 1e-6)
	assert.Equal(t, ai.ProviderOllama, cfg.AI.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.AI.ChatHost)
	assert.Equal(t, "mistral", cfg.AI.ChatModel)
	assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)
}

func TestLoad_Environment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7000\"\n"), 0o600))

	t.Setenv("DOCRAG_SERVER_ADDR", ":9999")
	t.Setenv("DOCRAG_SERVER_QUERY_TIMEOUT", "2s")
	t.Setenv("DOCRAG_AI_CHAT_MODEL", "gpt-4o-mini")
	t.Setenv("DOCRAG_STORE_TOP_K", "6")
	t.Setenv("DOCRAG_INGEST_PROGRESS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.QueryTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.ChatModel)
	assert.Equal(t, 6, cfg.Store.TopK)
	assert.True(t, cfg.Ingest.Progress)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "big.yaml")
		big := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
		require.NoError(t, os.WriteFile(path, []byte(big), 0o600))
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrConfigFileTooLarge)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("DOCRAG_STORE_BACKEND", "sqlite")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.addr", envKey("DOCRAG_SERVER_ADDR"))
	assert.Equal(t, "ai.chat_model", envKey("DOCRAG_AI_CHAT_MODEL"))
	assert.Equal(t, "splitter.min_chunk_size_chars", envKey("DOCRAG_SPLITTER_MIN_CHUNK_SIZE_CHARS"))
	assert.Equal(t, "verbose", envKey("DOCRAG_VERBOSE"))
}
