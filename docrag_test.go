package docrag

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/query"
	"github.com/poiesic/docrag/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func testConfig(t *testing.T, resource string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Ingest.Resource = resource
	cfg.Store.InMemory = true
	cfg.Store.Path = ""
	cfg.Splitter.Encoding = splitter.EncodingRunes
	return cfg
}

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "document.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func openTestService(t *testing.T, cfg *config.Config, provider *mock.MockProvider) *Service {
	t.Helper()
	svc, err := Open(cfg, WithProvider(provider), WithEncoder(splitter.RuneEncoder{}))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestOpen(t *testing.T) {
	t.Run("requires config", func(t *testing.T) {
		_, err := Open(nil)
		assert.ErrorIs(t, err, ErrConfigRequired)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := testConfig(t, "doc.txt")
		cfg.Store.Backend = "mysql"
		_, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("runes encoder from config", func(t *testing.T) {
		cfg := testConfig(t, "doc.txt")
		svc, err := Open(cfg, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer svc.Close()
		assert.NotNil(t, svc.Store())
		assert.Same(t, cfg, svc.Config())
	})
}

func TestService_IngestAndRespond(t *testing.T) {
	for _, backend := range []string{config.BackendBadger, config.BackendChromem} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, writeDocument(t, "Paris is the capital of France."))
			cfg.Store.Backend = backend

			chat := mock.NewMockChatModel()
			chat.GenerateContentFunc = func(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				if strings.Contains(mock.HumanText(messages), "Paris is the capital of France.") {
					return mock.Respond("Paris"), nil
				}
				return mock.Respond("I don't know"), nil
			}
			provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat)
			svc := openTestService(t, cfg, provider)

			result, err := svc.Ingest(ctx)
			require.NoError(t, err)
			assert.False(t, result.Skipped)
			assert.Equal(t, 1, result.Documents)
			assert.Equal(t, 1, result.Stored)

			count, err := svc.Store().Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			responder, err := svc.NewResponder()
			require.NoError(t, err)
			answer, err := responder.Respond(ctx, "What is the capital of France?")
			require.NoError(t, err)
			assert.Contains(t, answer, "Paris")
		})
	}
}

func TestService_IngestMissingResource(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.txt"))
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockChatModel())
	svc := openTestService(t, cfg, provider)

	result, err := svc.Ingest(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	count, err := svc.Store().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, provider.GetMockEmbedder().CallCount())
}

func TestService_IngestProgress(t *testing.T) {
	cfg := testConfig(t, writeDocument(t, "Paris is the capital of France."))
	cfg.Ingest.Progress = true

	var progress bytes.Buffer
	svc, err := Open(cfg,
		WithProvider(mock.NewMockProvider()),
		WithEncoder(splitter.RuneEncoder{}),
		WithProgressWriter(&progress))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Ingest(context.Background())
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "Ingest:")
}

func TestService_NewResponderUsesConfig(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "unused.txt")
	cfg.Query.SystemPrompt = ""
	cfg.Query.Template = "Q={{.question}} C={{.context}}"

	chat := mock.NewMockChatModel()
	svc := openTestService(t, cfg, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat))

	responder, err := svc.NewResponder()
	require.NoError(t, err)
	_, err = responder.Respond(ctx, "hi")
	require.NoError(t, err)

	messages := chat.LastMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[0].Role)
	assert.Equal(t, "Q=hi C=", chat.LastPrompt())

	// Caller options win over configuration
	responder, err = svc.NewResponder(query.WithSystemPrompt("be brief"))
	require.NoError(t, err)
	_, err = responder.Respond(ctx, "hi")
	require.NoError(t, err)
	assert.Len(t, chat.LastMessages(), 2)
}

func TestService_NewResponderPassesTemperature(t *testing.T) {
	cfg := testConfig(t, "unused.txt")
	cfg.AI.Temperature = 0.1

	var got llms.CallOptions
	chat := mock.NewMockChatModel()
	chat.GenerateContentFunc = func(_ context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
		got = llms.CallOptions{}
		for _, opt := range options {
			opt(&got)
		}
		return mock.Respond("ok"), nil
	}
	svc := openTestService(t, cfg, mock.NewMockProviderWithServices(mock.NewMockEmbedder(), chat))

	responder, err := svc.NewResponder()
	require.NoError(t, err)
	_, err = responder.Respond(context.Background(), "hi")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
}

func TestService_Close(t *testing.T) {
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockChatModel())
	svc, err := Open(testConfig(t, "doc.txt"), WithProvider(provider), WithEncoder(splitter.RuneEncoder{}))
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	assert.True(t, provider.Closed())
}
