package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/embeddings"
)

// scoredEntry returns a unit vector whose dot product with (1, 0) is score.
func scoredEntry(id string, score float64) Entry {
	return Entry{
		Chunk:  documents.Chunk{ID: id, Modality: documents.ModalityText},
		Vector: embeddings.Vector{float32(score), float32(math.Sqrt(1 - score*score))},
	}
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Chunk.ID
	}
	return out
}

var query = embeddings.Vector{1, 0}

func TestQuery_TopK(t *testing.T) {
	idx, err := Build([]Entry{
		scoredEntry("c", 0.5),
		scoredEntry("a", 0.9),
		scoredEntry("d", 0.3),
		scoredEntry("b", 0.7),
	})
	require.NoError(t, err)

	hits, err := idx.Query(query, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(hits))
	assert.InDelta(t, 0.9, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.7, hits[1].Score, 1e-6)
}

func TestQuery_ClampsK(t *testing.T) {
	idx, err := Build([]Entry{
		scoredEntry("a", 0.1),
		scoredEntry("b", 0.2),
		scoredEntry("c", 0.3),
	})
	require.NoError(t, err)

	hits, err := idx.Query(query, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(hits))

	hits, err = idx.Query(query, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := Build([]Entry{
		scoredEntry("low", 0.2),
		scoredEntry("first", 0.6),
		scoredEntry("second", 0.6),
		scoredEntry("third", 0.6),
	})
	require.NoError(t, err)

	hits, err := idx.Query(query, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, ids(hits))
}

func TestQuery_DimensionMismatch(t *testing.T) {
	idx, err := Build([]Entry{scoredEntry("a", 0.5)})
	require.NoError(t, err)

	_, err = idx.Query(embeddings.Vector{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrIndexQuery)

	_, err = idx.QueryMMR(embeddings.Vector{1}, 1, 5, 0.5)
	assert.ErrorIs(t, err, ErrIndexQuery)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	_, err := Build([]Entry{
		scoredEntry("a", 0.5),
		{Chunk: documents.Chunk{ID: "b"}, Vector: embeddings.Vector{1, 0, 0}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Build([]Entry{{Chunk: documents.Chunk{ID: "empty"}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEmptyIndex(t *testing.T) {
	idx, err := Build(nil)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())

	hits, err := idx.Query(query, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuild_CopiesEntries(t *testing.T) {
	entries := []Entry{scoredEntry("a", 0.9), scoredEntry("b", 0.1)}
	idx, err := Build(entries)
	require.NoError(t, err)

	entries[0] = scoredEntry("mutated", 0.95)
	hits, err := idx.Query(query, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", hits[0].Chunk.ID)
}

func TestQueryMMR(t *testing.T) {
	q := embeddings.Vector{0.8, 0.6, 0}
	idx, err := Build([]Entry{
		{Chunk: documents.Chunk{ID: "a"}, Vector: embeddings.Vector{1, 0, 0}},
		{Chunk: documents.Chunk{ID: "a-copy"}, Vector: embeddings.Vector{1, 0, 0}},
		{Chunk: documents.Chunk{ID: "b"}, Vector: embeddings.Vector{0, 1, 0}},
	})
	require.NoError(t, err)

	plain, err := idx.Query(q, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a-copy"}, ids(plain))

	diverse, err := idx.QueryMMR(q, 2, 3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(diverse))
	assert.InDelta(t, 0.6, diverse[1].Score, 1e-6)

	relevance, err := idx.QueryMMR(q, 2, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a-copy"}, ids(relevance))

	clamped, err := idx.QueryMMR(q, 10, 1, 0.5)
	require.NoError(t, err)
	assert.Len(t, clamped, 3)
}

func TestPartition(t *testing.T) {
	hits := []Hit{
		{Chunk: documents.Chunk{ID: "t1", Modality: documents.ModalityText}},
		{Chunk: documents.Chunk{ID: "i1", Modality: documents.ModalityImage}},
		{Chunk: documents.Chunk{ID: "t2", Modality: documents.ModalityText}},
		{Chunk: documents.Chunk{ID: "i2", Modality: documents.ModalityImage}},
	}
	text, images := Partition(hits)
	assert.Equal(t, []string{"t1", "t2"}, ids(text))
	assert.Equal(t, []string{"i1", "i2"}, ids(images))
}
