package embeddings

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
)

const (
	// DefaultDimension matches the CLIP ViT-B/32 projection size.
	DefaultDimension = 512
	// DefaultMaxTokens is the CLIP text context length.
	DefaultMaxTokens = 77
)

// ErrEmbedding is returned for degenerate or malformed embedder input.
var ErrEmbedding = errors.New("embedding failed")

// Vector is a unit-length embedding in the shared text/image space.
type Vector []float32

// Embedder projects text and images into one shared vector space.
// Implementations must be safe for concurrent use.
type Embedder interface {
	EmbedText(ctx context.Context, text string) (Vector, error)
	EmbedImage(ctx context.Context, img image.Image) (Vector, error)
	Dimension() int
	Name() string
}

// Normalize divides raw by its L2 norm.
func Normalize(raw []float64) (Vector, error) {
	var sum float64
	for _, v := range raw {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: zero-norm feature vector", ErrEmbedding)
	}
	vec := make(Vector, len(raw))
	for i, v := range raw {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

// Dot returns the dot product of two vectors of equal length.
func Dot(a, b Vector) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v Vector) float64 {
	return math.Sqrt(Dot(v, v))
}

// EmbedImageFile decodes the image at path and embeds it with e.
func EmbedImageFile(ctx context.Context, e Embedder, path string) (Vector, error) {
	img, err := DecodeImageFile(path)
	if err != nil {
		return nil, err
	}
	return e.EmbedImage(ctx, img)
}
