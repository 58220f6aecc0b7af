package documents

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// RawImage is an embedded raster image as stored in the document.
type RawImage struct {
	Index  int
	Format string
	Data   []byte
	// Err is set when the stream could not be extracted.
	Err    error
}

// Document is an opened document with zero-based pages.
type Document interface {
	NumPage() int
	Text(page int) (string, error)
	Images(page int) ([]RawImage, error)
	Close() error
}

// pdfDocument reads text through MuPDF and raster images through pdfcpu.
type pdfDocument struct {
	doc       *fitz.Document
	images    map[int][]RawImage
	imagesErr error
}

// OpenPDF opens a PDF held in memory. A PDF whose text layer cannot be read
// fails with ErrExtraction; if only the image enumeration fails the document
// is still returned and Images reports the failure for every page.
func OpenPDF(data []byte, logger *zap.Logger) (Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrExtraction)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", ErrExtraction, err)
	}

	pd := &pdfDocument{doc: doc}
	pd.images, pd.imagesErr = extractRasterImages(data)
	if pd.imagesErr != nil {
		logger.Warn("image enumeration failed, continuing with text only",
			zap.Int("pages", doc.NumPage()),
			zap.Error(pd.imagesErr))
	}
	return pd, nil
}

// OpenFile reads a PDF from disk and opens it.
func OpenFile(path string, logger *zap.Logger) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrExtraction, path, err)
	}
	return OpenPDF(data, logger)
}

func (d *pdfDocument) NumPage() int { return d.doc.NumPage() }

func (d *pdfDocument) Text(page int) (string, error) {
	text, err := d.doc.Text(page)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", page, err)
	}
	return text, nil
}

func (d *pdfDocument) Images(page int) ([]RawImage, error) {
	if d.imagesErr != nil {
		return nil, d.imagesErr
	}
	return d.images[page], nil
}

func (d *pdfDocument) Close() error {
	return d.doc.Close()
}

// extractRasterImages returns the raster images of every page keyed by
// zero-based page number, ordered by object number within a page. A stream
// that cannot be extracted keeps its index and carries the failure in Err so
// the other images on the page survive.
func extractRasterImages(data []byte) (images map[int][]RawImage, err error) {
	// pdfcpu panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			images, err = nil, fmt.Errorf("pdfcpu: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.Cmd = model.EXTRACTIMAGES

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate images: %w", err)
	}

	images = make(map[int][]RawImage)
	if ctx.Optimize == nil {
		return images, nil
	}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		objNrs := pdfcpu.ImageObjNrs(ctx, pageNr)
		sort.Ints(objNrs)

		raws := make([]RawImage, 0, len(objNrs))
		for _, objNr := range objNrs {
			raw := RawImage{Index: len(raws)}
			img, err := extractImage(ctx, pageNr, objNr)
			switch {
			case err != nil:
				raw.Err = err
			case img == nil:
				continue
			default:
				raw.Format = strings.ToLower(img.FileType)
				if img.Reader != nil {
					if raw.Data, err = io.ReadAll(img.Reader); err != nil {
						raw.Err = fmt.Errorf("failed to read image stream: %w", err)
					}
				}
			}
			raws = append(raws, raw)
		}
		if len(raws) > 0 {
			images[pageNr-1] = raws
		}
	}
	return images, nil
}

// extractImage renders one image object of a page.
func extractImage(ctx *model.Context, pageNr, objNr int) (img *model.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("pdfcpu: %v", r)
		}
	}()

	obj, ok := ctx.Optimize.ImageObjects[objNr]
	if !ok || obj == nil {
		return nil, nil
	}
	img, err = pdfcpu.ExtractImage(ctx, obj.ImageDict, false, obj.ResourceNames[pageNr-1], objNr, false)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNr, err)
	}
	return img, nil
}

// Page is the full text and images of one page, used when a whole document
// is summarised rather than retrieved from.
type Page struct {
	Number int
	Text   string
	Images []PageImage
}

// PageImage is a PNG-encoded page image.
type PageImage struct {
	ID   string
	Data []byte
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
