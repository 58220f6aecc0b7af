package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
)

// hashProbes is the number of signed buckets each token is spread over.
const hashProbes = 4

// HashEmbedder is an in-process embedder using signed feature hashing.
// Text tokens and image colour names hash into the same buckets, so a
// caption that names an image's dominant colours scores close to it.
type HashEmbedder struct {
	dim       int
	maxTokens int
}

// NewHashEmbedder creates a hash embedder.
func NewHashEmbedder(dim, maxTokens int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &HashEmbedder{dim: dim, maxTokens: maxTokens}
}

// Name returns the backend identifier.
func (h *HashEmbedder) Name() string { return "hash" }

// Dimension returns the vector size.
func (h *HashEmbedder) Dimension() int { return h.dim }

// EmbedText embeds text with the text path.
func (h *HashEmbedder) EmbedText(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := Normalize(h.textFeatures(text))
	if err != nil {
		return nil, fmt.Errorf("text %q: %w", truncateForError(text), err)
	}
	return vec, nil
}

// EmbedImage embeds a decoded bitmap with the image path.
func (h *HashEmbedder) EmbedImage(ctx context.Context, img image.Image) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrEmbedding)
	}
	vec, err := Normalize(h.imageFeatures(img))
	if err != nil {
		return nil, fmt.Errorf("image %v: %w", img.Bounds().Size(), err)
	}
	return vec, nil
}

func (h *HashEmbedder) addToken(raw []float64, tok string, weight float64) {
	for p := 0; p < hashProbes; p++ {
		hasher := fnv.New64a()
		hasher.Write([]byte{byte(p)})
		hasher.Write([]byte(tok))
		sum := hasher.Sum64()

		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		raw[int(sum%uint64(h.dim))] += sign * weight / hashProbes
	}
}

func truncateForError(s string) string {
	const limit = 40
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
