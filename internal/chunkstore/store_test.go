package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsum/internal/summarize"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", LocalEmbedding(64))
	require.NoError(t, err)
	return s
}

func TestStore_PutAndChunksKeepOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	in := []summarize.StoredChunk{
		{Text: "first chunk about scope", SectionID: "1 Scope"},
		{Text: "second chunk about payment", SectionID: "2 Payment"},
		{Text: "third chunk about payment terms", SectionID: "2 Payment > 2.1 Terms"},
	}
	require.NoError(t, s.Put(ctx, "doc-a", in))

	got, err := s.Chunks(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestStore_MissingDocument(t *testing.T) {
	s := newStore(t)
	_, err := s.Chunks(context.Background(), "nope")
	assert.ErrorIs(t, err, summarize.ErrNotFound)
}

func TestStore_PutReplacesPreviousChunks(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "doc", []summarize.StoredChunk{{Text: "a"}, {Text: "b"}, {Text: "c"}}))
	require.NoError(t, s.Put(ctx, "other", []summarize.StoredChunk{{Text: "x"}}))
	require.NoError(t, s.Put(ctx, "doc", []summarize.StoredChunk{{Text: "z"}}))

	got, err := s.Chunks(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []summarize.StoredChunk{{Text: "z"}}, got)
	assert.Equal(t, 2, s.Count())
}

func TestStore_Delete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "empty-store"))
	require.NoError(t, s.Put(ctx, "doc", []summarize.StoredChunk{{Text: "a"}}))
	require.NoError(t, s.Delete(ctx, "doc"))

	_, err := s.Chunks(ctx, "doc")
	assert.ErrorIs(t, err, summarize.ErrNotFound)
}

func TestLocalEmbedding_Normalized(t *testing.T) {
	ef := LocalEmbedding(32)
	v, err := ef(context.Background(), "Payment terms, payment schedule.")
	require.NoError(t, err)
	require.Len(t, v, 32)
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)

	empty, err := ef(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, float32(1), empty[0])
}

func TestNewEmbeddingFunc(t *testing.T) {
	for _, p := range []string{EmbedLocal, EmbedOllama, EmbedOpenAI, ""} {
		ef, err := NewEmbeddingFunc(EmbedConfig{Provider: p})
		require.NoError(t, err, p)
		assert.NotNil(t, ef)
	}
	_, err := NewEmbeddingFunc(EmbedConfig{Provider: "bert"})
	assert.Error(t, err)
}
