package documents

// textDocument presents plain strings as pages without images.
type textDocument struct {
	pages []string
}

// TextDocument returns a Document whose pages are the given strings.
func TextDocument(pages ...string) Document {
	return &textDocument{pages: pages}
}

func (d *textDocument) NumPage() int { return len(d.pages) }

func (d *textDocument) Text(page int) (string, error) { return d.pages[page], nil }

func (d *textDocument) Images(int) ([]RawImage, error) { return nil, nil }

func (d *textDocument) Close() error { return nil }
