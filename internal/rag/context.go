package rag

import (
	"fmt"
	"strings"

	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/index"
)

// PNGMIMEType is the MIME type of every attachment.
const PNGMIMEType = "image/png"

// Attachment is an inline image handed to the generator.
type Attachment struct {
	ID       string `json:"id"`
	Page     int    `json:"page"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// ContextPayload is the text block and images given to a generation model.
type ContextPayload struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
}

// Assemble formats retrieved chunks for generation. Text hits are labelled
// with their page; image hits become attachments in hit order, and hits
// whose bytes are not in store are dropped.
func Assemble(query string, textHits, imageHits []index.Hit, store *documents.ImageStore) ContextPayload {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nContext:\n", query)

	if len(textHits) > 0 {
		excerpts := make([]string, len(textHits))
		for i, h := range textHits {
			excerpts[i] = fmt.Sprintf("[Page %d]: %s", h.Chunk.Page, h.Chunk.Content)
		}
		b.WriteString("Text excerpts:\n")
		b.WriteString(strings.Join(excerpts, "\n\n"))
	}

	payload := ContextPayload{Text: b.String(), Attachments: []Attachment{}}
	for _, h := range imageHits {
		data, ok := store.Get(h.Chunk.ID)
		if !ok {
			continue
		}
		payload.Attachments = append(payload.Attachments, Attachment{
			ID:       h.Chunk.ID,
			Page:     h.Chunk.Page,
			MIMEType: PNGMIMEType,
			Data:     data,
		})
	}
	return payload
}

// JoinContent concatenates hit contents separated by blank lines.
func JoinContent(hits []index.Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Chunk.Content
	}
	return strings.Join(parts, "\n\n")
}

// ChunkIDs returns the chunk ids of hits in order.
func ChunkIDs(hits []index.Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.Chunk.ID)
	}
	return ids
}
