package documents

import (
	"unicode"
)

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the number of characters shared by neighbouring windows.
	DefaultChunkOverlap = 100
)

// Splitter cuts text into fixed-size overlapping character windows.
type Splitter struct {
	size    int
	overlap int
}

// SplitterOption configures a Splitter.
type SplitterOption func(*Splitter)

// WithChunkSize sets the window length in characters.
func WithChunkSize(size int) SplitterOption {
	return func(s *Splitter) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithChunkOverlap sets the overlap between windows in characters.
func WithChunkOverlap(overlap int) SplitterOption {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// NewSplitter creates a splitter, 500/100 unless overridden.
func NewSplitter(opts ...SplitterOption) *Splitter {
	s := &Splitter{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.size {
		s.overlap = s.size / 4
	}
	return s
}

// Size returns the window length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the window overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the windows of text. Windows start every size-overlap runes
// and the last one ends at the end of the text. Windows without any letter
// or digit are dropped.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := s.size - s.overlap
	chunks := make([]string, 0, n/step+1)
	for start := 0; ; start += step {
		end := start + s.size
		if end > n {
			end = n
		}
		window := runes[start:end]
		if hasContent(window) {
			chunks = append(chunks, string(window))
		}
		if end == n {
			break
		}
	}
	return chunks
}

func hasContent(rs []rune) bool {
	for _, r := range rs {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
