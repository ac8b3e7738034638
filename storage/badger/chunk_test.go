package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddChunks(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	before := time.Now().UTC()
	chunk := newEmbeddedChunk("Paris is the capital of France.", 1, 0)

	added, err := repo.AddChunks(ctx, chunk)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.False(t, added[0].InsertedAt.Before(before))

	got, err := repo.GetChunk(ctx, chunk.Id)
	require.NoError(t, err)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, chunk.Metadata, got.Metadata)
	assert.Equal(t, chunk.Vector, got.Vector)
}

func TestAddChunks_Empty(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	added, err := repo.AddChunks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestAddChunks_DuplicateContentOverwrites(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	_, err = repo.AddChunks(ctx, newEmbeddedChunk("same text", 1, 0))
	require.NoError(t, err)
	_, err = repo.AddChunks(ctx, newEmbeddedChunk("same text", 0, 1))
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := repo.GetChunk(ctx, core.IDFromContent("same text"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Vector)
}

func TestAddChunks_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *core.Chunk
		wantErr error
	}{
		{"nil chunk", nil, core.ErrInvalidChunk},
		{"empty content", &core.Chunk{Vector: []float32{1}}, core.ErrInvalidChunk},
		{"id mismatch", &core.Chunk{Id: 42, Content: "text", Vector: []float32{1}}, core.ErrIDMismatch},
		{"missing vector", core.NewChunk("no vector", nil), storage.ErrMissingVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := NewMemoryRepository()
			require.NoError(t, err)
			defer repo.Close()

			ctx := context.Background()
			_, err = repo.AddChunks(ctx, newEmbeddedChunk("valid", 1), tt.chunk)
			assert.ErrorIs(t, err, tt.wantErr)

			// The batch is cancelled as a whole
			count, err := repo.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestGetChunk_NotFound(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.GetChunk(context.Background(), core.IDFromContent("missing"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCount(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.AddChunks(ctx,
		newEmbeddedChunk("one", 1, 0),
		newEmbeddedChunk("two", 0, 1),
	)
	require.NoError(t, err)

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRepository_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := Open(dir, false, nil)
	require.NoError(t, err)
	_, err = repo.AddChunks(ctx, newEmbeddedChunk("durable", 1, 0))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(dir, false, nil)
	require.NoError(t, err)
	defer repo.Close()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewChunkRepository_SharedBackend(t *testing.T) {
	_, err := NewChunkRepository(nil)
	require.Error(t, err)

	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	repo, err := NewChunkRepository(backend)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	assert.False(t, backend.IsClosed())
}
