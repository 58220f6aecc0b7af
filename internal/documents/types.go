package documents

import (
	"errors"
	"fmt"
	"sort"
)

// ErrExtraction is returned when a document cannot be opened or parsed at all.
var ErrExtraction = errors.New("document extraction failed")

// Modality is the kind of content a chunk carries.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Chunk is a retrievable unit of document content. Image chunks carry a
// placeholder label; their bytes live in an ImageStore under the same ID.
type Chunk struct {
	ID       string   `json:"id"`
	Page     int      `json:"page"`
	Modality Modality `json:"modality"`
	Content  string   `json:"content"`
}

// TextChunkID returns the id of the i-th text window on a page.
func TextChunkID(page, i int) string {
	return fmt.Sprintf("page_%d_txt_%d", page, i)
}

// ImageChunkID returns the id of the i-th image on a page.
func ImageChunkID(page, i int) string {
	return fmt.Sprintf("page_%d_img_%d", page, i)
}

// ImageLabel is the content of an image chunk.
func ImageLabel(id string) string {
	return "[Image: " + id + "]"
}

// ImageStore maps image chunk ids to PNG bytes. It belongs to one request
// and is not safe for concurrent writes.
type ImageStore struct {
	images map[string][]byte
}

// NewImageStore creates an empty store.
func NewImageStore() *ImageStore {
	return &ImageStore{images: make(map[string][]byte)}
}

// Put stores PNG bytes under id.
func (s *ImageStore) Put(id string, png []byte) {
	s.images[id] = png
}

// Get returns the PNG bytes stored under id.
func (s *ImageStore) Get(id string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	data, ok := s.images[id]
	return data, ok
}

// Len returns the number of stored images.
func (s *ImageStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.images)
}

// IDs returns the stored ids in sorted order.
func (s *ImageStore) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ImageDecodeWarning records an image that was skipped during extraction.
// Index is -1 when the whole image enumeration of the document failed.
type ImageDecodeWarning struct {
	Page  int
	Index int
	Err   error
}

func (w ImageDecodeWarning) String() string {
	if w.Index < 0 {
		return fmt.Sprintf("images unavailable: %v", w.Err)
	}
	return fmt.Sprintf("page %d image %d skipped: %v", w.Page, w.Index, w.Err)
}
