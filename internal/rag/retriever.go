package rag

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/internal/documents"
	"github.com/RSinthu/QuizGenerator/internal/embeddings"
	"github.com/RSinthu/QuizGenerator/internal/index"
)

// DefaultTopK is used when a request does not specify k.
const DefaultTopK = 5

// Source opens the document a retrieval runs over.
type Source interface {
	Open(logger *zap.Logger) (documents.Document, error)
}

// Origin identifies a source in history records: a display name and a
// stable reference such as a content hash or video id.
type Origin struct {
	Name string
	Ref  string
}

// PDFBytes is a PDF held in memory.
type PDFBytes []byte

// Open parses the PDF.
func (p PDFBytes) Open(logger *zap.Logger) (documents.Document, error) {
	return documents.OpenPDF(p, logger)
}

// PDFFile is a PDF on disk.
type PDFFile string

// Open reads and parses the PDF.
func (p PDFFile) Open(logger *zap.Logger) (documents.Document, error) {
	return documents.OpenFile(string(p), logger)
}

// Config tunes retrieval.
type Config struct {
	TopK                   int
	ChunkSize              int
	ChunkOverlap           int
	Workers                int
	TranscriptChunkSize    int
	TranscriptChunkOverlap int
	MMRFetchK              int
	MMRLambda              float64
}

// Retriever extracts, indexes and searches one document per call. It keeps
// no state between calls and is safe for concurrent use.
type Retriever struct {
	embedder   embeddings.Embedder
	pdf        *documents.Extractor
	transcript *documents.Extractor
	topK       int
	fetchK     int
	lambda     float64
	logger     *zap.Logger
}

// NewRetriever creates a retriever over the shared embedder.
func NewRetriever(embedder embeddings.Embedder, cfg Config, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = documents.DefaultChunkOverlap
	}
	if cfg.TranscriptChunkSize <= 0 {
		cfg.TranscriptChunkSize = 800
	}
	if cfg.TranscriptChunkOverlap <= 0 {
		cfg.TranscriptChunkOverlap = 100
	}
	if cfg.MMRFetchK <= 0 {
		cfg.MMRFetchK = 20
	}
	if cfg.MMRLambda <= 0 {
		cfg.MMRLambda = 0.5
	}

	return &Retriever{
		embedder: embedder,
		pdf: documents.NewExtractor(embedder,
			documents.WithSplitter(documents.NewSplitter(
				documents.WithChunkSize(cfg.ChunkSize),
				documents.WithChunkOverlap(cfg.ChunkOverlap))),
			documents.WithWorkers(cfg.Workers),
			documents.WithLogger(logger)),
		transcript: documents.NewExtractor(embedder,
			documents.WithSplitter(documents.NewSplitter(
				documents.WithChunkSize(cfg.TranscriptChunkSize),
				documents.WithChunkOverlap(cfg.TranscriptChunkOverlap))),
			documents.WithWorkers(cfg.Workers),
			documents.WithLogger(logger)),
		topK:   cfg.TopK,
		fetchK: cfg.MMRFetchK,
		lambda: cfg.MMRLambda,
		logger: logger,
	}
}

// RetrievalResult is the outcome of one retrieval.
type RetrievalResult struct {
	Hits      []index.Hit                    `json:"hits"`
	TextHits  []index.Hit                    `json:"-"`
	ImageHits []index.Hit                    `json:"-"`
	Payload   ContextPayload                 `json:"payload"`
	Warnings  []documents.ImageDecodeWarning `json:"-"`
	Indexed   int                            `json:"indexed"`
}

// WarningMessages renders the warnings for display.
func (r *RetrievalResult) WarningMessages() []string {
	msgs := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		msgs[i] = w.String()
	}
	return msgs
}

// Retrieve opens src, indexes its text and images and returns the k chunks
// most similar to query with their assembled context. k <= 0 uses the
// configured default.
func (r *Retriever) Retrieve(ctx context.Context, src Source, query string, k int) (*RetrievalResult, error) {
	if k <= 0 {
		k = r.topK
	}

	doc, err := src.Open(r.logger)
	if err != nil {
		if !errors.Is(err, documents.ErrExtraction) {
			err = fmt.Errorf("%w: %v", documents.ErrExtraction, err)
		}
		return nil, err
	}
	defer doc.Close()

	ex, err := r.pdf.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document: %w", err)
	}

	idx, err := index.FromExtraction(ex)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	queryVec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := idx.Query(queryVec, k)
	if err != nil {
		return nil, err
	}
	textHits, imageHits := index.Partition(hits)

	r.logger.Info("retrieved context",
		zap.Int("indexed", idx.Len()),
		zap.Int("text_hits", len(textHits)),
		zap.Int("image_hits", len(imageHits)),
		zap.Strings("ids", ChunkIDs(hits)),
		zap.Int("warnings", len(ex.Warnings)))

	return &RetrievalResult{
		Hits:      hits,
		TextHits:  textHits,
		ImageHits: imageHits,
		Payload:   Assemble(query, textHits, imageHits, ex.Images),
		Warnings:  ex.Warnings,
		Indexed:   idx.Len(),
	}, nil
}

// RetrieveText windows plain texts such as transcripts, indexes them and
// returns k diverse, relevant windows selected by maximal marginal relevance.
func (r *Retriever) RetrieveText(ctx context.Context, texts []string, query string, k int) ([]index.Hit, error) {
	if k <= 0 {
		k = r.topK
	}

	ex, err := r.transcript.Extract(ctx, documents.TextDocument(texts...))
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	idx, err := index.FromExtraction(ex)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	queryVec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := idx.QueryMMR(queryVec, k, r.fetchK, r.lambda)
	if err != nil {
		return nil, err
	}
	r.logger.Info("retrieved transcript context",
		zap.Int("indexed", idx.Len()),
		zap.Int("hits", len(hits)))
	return hits, nil
}
