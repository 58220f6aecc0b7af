package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RSinthu/QuizGenerator/internal/embeddings"
)

// Item pairs a chunk with its embedding.
type Item struct {
	Chunk  Chunk
	Vector embeddings.Vector
}

// Extraction is the output of one extraction pass.
type Extraction struct {
	Items    []Item
	Images   *ImageStore
	Warnings []ImageDecodeWarning
}

// Chunks returns the extracted chunks in order.
func (e *Extraction) Chunks() []Chunk {
	chunks := make([]Chunk, len(e.Items))
	for i, item := range e.Items {
		chunks[i] = item.Chunk
	}
	return chunks
}

// Extractor turns documents into embedded chunks.
type Extractor struct {
	embedder embeddings.Embedder
	splitter *Splitter
	workers  int
	logger   *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithSplitter sets the text splitter.
func WithSplitter(s *Splitter) ExtractorOption {
	return func(e *Extractor) {
		if s != nil {
			e.splitter = s
		}
	}
}

// WithWorkers bounds the number of concurrent embedding calls.
func WithWorkers(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an extractor backed by embedder.
func NewExtractor(embedder embeddings.Embedder, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		embedder: embedder,
		splitter: NewSplitter(),
		workers:  runtime.NumCPU(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// embedJob is one pending embedding; exactly one of text or img is set.
type embedJob struct {
	text string
	img  image.Image
}

// Extract walks doc page by page and returns its chunks in page order, text
// before images within a page, each with its embedding. Images that fail to
// decode are skipped and recorded as warnings.
func (e *Extractor) Extract(ctx context.Context, doc Document) (*Extraction, error) {
	out := &Extraction{Images: NewImageStore()}
	var (
		jobs       []embedJob
		imagesDown bool
	)

	for page := 0; page < doc.NumPage(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.Text(page)
		if err != nil {
			e.logger.Warn("page text unavailable", zap.Int("page", page), zap.Error(err))
			text = ""
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			for i, window := range e.splitter.Split(trimmed) {
				out.Items = append(out.Items, Item{Chunk: Chunk{
					ID:       TextChunkID(page, i),
					Page:     page,
					Modality: ModalityText,
					Content:  window,
				}})
				jobs = append(jobs, embedJob{text: window})
			}
		}

		raws, err := doc.Images(page)
		if err != nil {
			if !imagesDown {
				imagesDown = true
				out.Warnings = append(out.Warnings, ImageDecodeWarning{Page: page, Index: -1, Err: err})
			}
			continue
		}
		for _, raw := range raws {
			id := ImageChunkID(page, raw.Index)
			img, pngBytes, err := canonicalImage(raw)
			if err != nil {
				w := ImageDecodeWarning{Page: page, Index: raw.Index, Err: err}
				out.Warnings = append(out.Warnings, w)
				e.logger.Warn("skipping undecodable image",
					zap.String("id", id),
					zap.String("format", raw.Format),
					zap.Error(err))
				continue
			}
			out.Images.Put(id, pngBytes)
			out.Items = append(out.Items, Item{Chunk: Chunk{
				ID:       id,
				Page:     page,
				Modality: ModalityImage,
				Content:  ImageLabel(id),
			}})
			jobs = append(jobs, embedJob{img: img})
		}
	}

	if err := e.embedAll(ctx, out.Items, jobs); err != nil {
		return nil, err
	}

	e.logger.Debug("document extracted",
		zap.Int("pages", doc.NumPage()),
		zap.Int("chunks", len(out.Items)),
		zap.Int("images", out.Images.Len()),
		zap.Int("warnings", len(out.Warnings)))
	return out, nil
}

// embedAll fills items[i].Vector from jobs[i] using a bounded worker pool.
func (e *Extractor) embedAll(ctx context.Context, items []Item, jobs []embedJob) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range jobs {
		g.Go(func() error {
			var (
				vec embeddings.Vector
				err error
			)
			if jobs[i].img != nil {
				vec, err = e.embedder.EmbedImage(gctx, jobs[i].img)
			} else {
				vec, err = e.embedder.EmbedText(gctx, jobs[i].text)
			}
			if err != nil {
				return fmt.Errorf("failed to embed chunk %s: %w", items[i].Chunk.ID, err)
			}
			items[i].Vector = vec
			return nil
		})
	}

	return g.Wait()
}

// canonicalImage decodes raw and re-encodes it as an opaque RGB PNG.
func canonicalImage(raw RawImage) (image.Image, []byte, error) {
	if raw.Err != nil {
		return nil, nil, raw.Err
	}
	if len(raw.Data) == 0 {
		return nil, nil, fmt.Errorf("empty %s stream", formatName(raw.Format))
	}
	img, _, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s image: %w", formatName(raw.Format), err)
	}
	rgb := embeddings.ToRGB(img)
	if rgb.Bounds().Empty() {
		return nil, nil, errors.New("image has no pixels")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgb); err != nil {
		return nil, nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return rgb, buf.Bytes(), nil
}

func formatName(format string) string {
	if format == "" {
		return "unknown"
	}
	return format
}

// LoadPages returns the text and PNG images of every page without embedding
// anything. Undecodable images are skipped and reported.
func LoadPages(ctx context.Context, doc Document) ([]Page, []ImageDecodeWarning, error) {
	var (
		pages      []Page
		warnings   []ImageDecodeWarning
		imagesDown bool
	)
	for p := 0; p < doc.NumPage(); p++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		text, err := doc.Text(p)
		if err != nil {
			text = ""
		}
		page := Page{Number: p, Text: strings.TrimSpace(text)}

		raws, err := doc.Images(p)
		if err != nil {
			if !imagesDown {
				imagesDown = true
				warnings = append(warnings, ImageDecodeWarning{Page: p, Index: -1, Err: err})
			}
			raws = nil
		}
		for _, raw := range raws {
			_, data, err := canonicalImage(raw)
			if err != nil {
				warnings = append(warnings, ImageDecodeWarning{Page: p, Index: raw.Index, Err: err})
				continue
			}
			page.Images = append(page.Images, PageImage{ID: ImageChunkID(p, raw.Index), Data: data})
		}
		pages = append(pages, page)
	}
	return pages, warnings, nil
}
