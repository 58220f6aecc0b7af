// Package index is a brute-force in-memory vector index built once per
// request. Vectors are expected to be unit length, so the dot product is the
// cosine similarity.
package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/embeddings"
)

var (
	// ErrIndexQuery is returned when a query vector does not match the index dimension.
	ErrIndexQuery = errors.New("index query failed")
	// ErrDimensionMismatch is returned when entries of different sizes are built together.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Entry is a chunk and its embedding.
type Entry struct {
	Chunk  documents.Chunk
	Vector embeddings.Vector
}

// Hit is a query result.
type Hit struct {
	Chunk documents.Chunk `json:"chunk"`
	Score float64         `json:"score"`
}

// Index holds a fixed set of entries. It is immutable after Build and may be
// queried concurrently.
type Index struct {
	dimension int
	entries   []Entry
}

// Build creates an index over entries, keeping their order for tie-breaks.
func Build(entries []Entry) (*Index, error) {
	idx := &Index{entries: make([]Entry, len(entries))}
	copy(idx.entries, entries)
	for i, e := range idx.entries {
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("%w: entry %s has no vector", ErrDimensionMismatch, e.Chunk.ID)
		}
		if i == 0 {
			idx.dimension = len(e.Vector)
			continue
		}
		if len(e.Vector) != idx.dimension {
			return nil, fmt.Errorf("%w: entry %s has %d dimensions, index has %d",
				ErrDimensionMismatch, e.Chunk.ID, len(e.Vector), idx.dimension)
		}
	}
	return idx, nil
}

// FromExtraction builds an index over an extraction's items.
func FromExtraction(ex *documents.Extraction) (*Index, error) {
	entries := make([]Entry, len(ex.Items))
	for i, item := range ex.Items {
		entries[i] = Entry{Chunk: item.Chunk, Vector: item.Vector}
	}
	return Build(entries)
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Dimension returns the vector size of the index, 0 when empty.
func (idx *Index) Dimension() int { return idx.dimension }

// Query returns the k entries most similar to vector, best first. Equal
// scores keep insertion order. k is clamped to the index size and k <= 0
// returns no hits.
func (idx *Index) Query(vector embeddings.Vector, k int) ([]Hit, error) {
	if err := idx.checkQuery(vector); err != nil {
		return nil, err
	}
	if k <= 0 || len(idx.entries) == 0 {
		return []Hit{}, nil
	}
	if k > len(idx.entries) {
		k = len(idx.entries)
	}

	order := idx.rank(vector)
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		hits[i] = Hit{Chunk: idx.entries[order[i].pos].Chunk, Score: order[i].score}
	}
	return hits, nil
}

type scored struct {
	pos   int
	score float64
}

func (idx *Index) rank(vector embeddings.Vector) []scored {
	order := make([]scored, len(idx.entries))
	for i, e := range idx.entries {
		order[i] = scored{pos: i, score: embeddings.Dot(e.Vector, vector)}
	}
	sort.SliceStable(order, func(a, b int) bool { return order[a].score > order[b].score })
	return order
}

func (idx *Index) checkQuery(vector embeddings.Vector) error {
	if len(idx.entries) == 0 {
		return nil
	}
	if len(vector) != idx.dimension {
		return fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrIndexQuery, len(vector), idx.dimension)
	}
	return nil
}

// Partition splits hits by modality, keeping their order.
func Partition(hits []Hit) (text, images []Hit) {
	for _, h := range hits {
		if h.Chunk.Modality == documents.ModalityImage {
			images = append(images, h)
		} else {
			text = append(text, h)
		}
	}
	return text, images
}
