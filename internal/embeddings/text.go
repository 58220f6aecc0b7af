package embeddings

import (
	"regexp"
	"strings"
)

// padToken fills token slots past the end of short inputs.
const padToken = ""

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize lowercases text, splits it into word tokens and returns exactly
// maxTokens slots: longer inputs are cut, shorter ones padded.
func Tokenize(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	words := wordPattern.FindAllString(strings.ToLower(text), maxTokens)

	tokens := make([]string, maxTokens)
	copy(tokens, words)
	for i := len(words); i < maxTokens; i++ {
		tokens[i] = padToken
	}
	return tokens
}

// textFeatures hashes the non-padding tokens into a raw feature vector.
func (h *HashEmbedder) textFeatures(text string) []float64 {
	raw := make([]float64, h.dim)
	for _, tok := range Tokenize(text, h.maxTokens) {
		if tok == padToken {
			continue
		}
		h.addToken(raw, tok, 1)
	}
	return raw
}
