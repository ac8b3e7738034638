package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/reader"
	"github.com/poiesic/docrag/splitter"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/poiesic/docrag/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// recordingStore implements vectorstores.VectorStore and remembers what it was given.
type recordingStore struct {
	calls int
	docs  []schema.Document
	err   error
}

var _ vectorstores.VectorStore = (*recordingStore)(nil)

func (s *recordingStore) AddDocuments(_ context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.docs = append(s.docs, docs...)
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = string(rune('a' + i%26))
	}
	return ids, nil
}

func (s *recordingStore) SimilaritySearch(context.Context, string, int, ...vectorstores.Option) ([]schema.Document, error) {
	return nil, nil
}

func newSplitter(t *testing.T, opts splitter.Options) *splitter.TokenSplitter {
	t.Helper()
	s, err := splitter.NewTokenSplitter(splitter.RuneEncoder{}, splitter.WithOptions(opts))
	require.NoError(t, err)
	return s
}

func writeResource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func longText() string {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
		if i%7 == 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func TestIngest_RequiresCollaborators(t *testing.T) {
	ctx := context.Background()
	loader := LoaderFunc(reader.Load)
	s := newSplitter(t, splitter.DefaultOptions())
	store := &recordingStore{}

	_, err := Ingest(ctx, Config{}, nil, s, store)
	assert.ErrorIs(t, err, ErrLoaderRequired)
	_, err = Ingest(ctx, Config{}, loader, nil, store)
	assert.ErrorIs(t, err, ErrSplitterRequired)
	_, err = Ingest(ctx, Config{}, loader, s, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestIngest_MissingResource(t *testing.T) {
	store := &recordingStore{}
	cfg := Config{Resource: filepath.Join(t.TempDir(), "missing.txt")}

	result, err := Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, splitter.DefaultOptions()), store)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, store.calls)
}

func TestIngest_MissingResourceLeavesStoreUnmodified(t *testing.T) {
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()
	store, err := vectorstore.New(repo, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer store.Close()

	cfg := Config{Resource: filepath.Join(t.TempDir(), "nothing-here")}
	result, err := Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, splitter.DefaultOptions()), store)
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngest_StoresAllChunksInOneCall(t *testing.T) {
	store := &recordingStore{}
	cfg := Config{Resource: writeResource(t, longText())}

	result, err := Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, splitter.DefaultOptions()), store)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Documents)
	assert.Greater(t, result.Chunks, 1)
	assert.Equal(t, result.Chunks, result.Stored)
	assert.Equal(t, 1, store.calls)
	require.Len(t, store.docs, result.Chunks)
	assert.Equal(t, cfg.Resource, store.docs[0].Metadata["source"])
}

func TestIngest_Deterministic(t *testing.T) {
	cfg := Config{Resource: writeResource(t, longText())}
	opts := splitter.Options{ChunkSize: 800, MinChunkSizeChars: 350, MinChunkLengthToEmbed: 5, MaxNumChunks: 10000, KeepSeparator: true}

	first := &recordingStore{}
	_, err := Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, opts), first)
	require.NoError(t, err)

	second := &recordingStore{}
	_, err = Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, opts), second)
	require.NoError(t, err)

	assert.Equal(t, first.docs, second.docs)
}

func TestIngest_ChunkInvariants(t *testing.T) {
	opts := splitter.Options{ChunkSize: 40, MinChunkSizeChars: 10, MinChunkLengthToEmbed: 5, MaxNumChunks: 6, KeepSeparator: true}
	store := &recordingStore{}
	cfg := Config{Resource: writeResource(t, longText())}

	result, err := Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, opts), store)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.Chunks, opts.MaxNumChunks)
	for _, doc := range store.docs {
		assert.GreaterOrEqual(t, len(splitter.RuneEncoder{}.Encode(doc.PageContent)), opts.MinChunkLengthToEmbed)
	}
}

func TestIngest_NoChunks(t *testing.T) {
	store := &recordingStore{}
	cfg := Config{Resource: writeResource(t, "tiny")}

	result, err := Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, splitter.DefaultOptions()), store)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents)
	assert.Zero(t, result.Chunks)
	assert.Zero(t, store.calls)
}

func TestIngest_Errors(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Resource: writeResource(t, longText())}
	s := newSplitter(t, splitter.DefaultOptions())

	t.Run("loader", func(t *testing.T) {
		loader := LoaderFunc(func(context.Context, string) ([]schema.Document, error) {
			return nil, errors.New("disk on fire")
		})
		_, err := Ingest(ctx, cfg, loader, s, &recordingStore{})
		assert.ErrorIs(t, err, ErrIngestionFailed)
		assert.ErrorContains(t, err, "disk on fire")
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "image.png")
		require.NoError(t, os.WriteFile(path, []byte("png"), 0644))
		_, err := Ingest(ctx, Config{Resource: path}, LoaderFunc(reader.Load), s, &recordingStore{})
		assert.ErrorIs(t, err, ErrIngestionFailed)
		assert.ErrorIs(t, err, reader.ErrUnsupportedFormat)
	})

	t.Run("store", func(t *testing.T) {
		storeErr := errors.New("store unavailable")
		_, err := Ingest(ctx, cfg, LoaderFunc(reader.Load), s, &recordingStore{err: storeErr})
		assert.ErrorIs(t, err, ErrIngestionFailed)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestIngest_UnreadableFileInDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(longText()), 0644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone.txt"), filepath.Join(dir, "b.txt")))

	store := &recordingStore{}
	result, err := Ingest(context.Background(), Config{Resource: dir}, LoaderFunc(reader.Load), newSplitter(t, splitter.DefaultOptions()), store)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIngestionFailed)
	assert.NotErrorIs(t, err, reader.ErrResourceNotFound)
	assert.Nil(t, result)
	assert.Zero(t, store.calls)
}

func TestIngest_LoaderNotExistIsFatal(t *testing.T) {
	loader := LoaderFunc(func(context.Context, string) ([]schema.Document, error) {
		return nil, &fs.PathError{Op: "open", Path: "nested.txt", Err: fs.ErrNotExist}
	})

	store := &recordingStore{}
	_, err := Ingest(context.Background(), Config{Resource: "docs"}, loader, newSplitter(t, splitter.DefaultOptions()), store)
	assert.ErrorIs(t, err, ErrIngestionFailed)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Zero(t, store.calls)
}

func TestIngest_Progress(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Resource: writeResource(t, longText())}

	_, err := Ingest(context.Background(), cfg, LoaderFunc(reader.Load), newSplitter(t, splitter.DefaultOptions()), &recordingStore{}, WithProgress(&buf))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Ingest: 1/3")
	assert.Contains(t, out, "extracted 1 documents")
	assert.Regexp(t, `split into \d+ chunks`, out)
	assert.Regexp(t, `stored \d+ chunks`, out)
	assert.Contains(t, out, "Ingest: 3/3 (100.0%) - done")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", 200))
	assert.Equal(t, "héll...", preview("héllo", 4))
}
