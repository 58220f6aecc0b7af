// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image/color"
	"strings"
)

// Image is a 2x2 DeviceRGB image filled with one colour. A corrupt image
// declares FlateDecode but carries bytes that do not inflate.
type Image struct {
	Color   color.RGBA
	Corrupt bool
}

// Page is one letter-sized page with a single line of Helvetica text and
// its images drawn in a row below it.
type Page struct {
	Text   string
	Images []Image
}

// Build returns a PDF with the given pages. Images with the same colour are
// deduplicated by some readers, so give each image its own colour.
func Build(pages ...Page) []byte {
	b := &builder{}
	catalog := b.reserve()
	root := b.reserve()
	font := b.reserve()

	var kids []string
	for _, p := range pages {
		pageNr := b.reserve()
		contentNr := b.reserve()
		kids = append(kids, fmt.Sprintf("%d 0 R", pageNr))

		var xobjects, content strings.Builder
		if p.Text != "" {
			fmt.Fprintf(&content, "BT /F1 12 Tf 72 720 Td (%s) Tj ET\n", escape(p.Text))
		}
		for i, img := range p.Images {
			imgNr := b.reserve()
			fmt.Fprintf(&xobjects, "/Im%d %d 0 R ", i, imgNr)
			fmt.Fprintf(&content, "q 40 0 0 40 %d 600 cm /Im%d Do Q\n", 72+50*i, i)
			b.set(imgNr, imageObject(img))
		}

		b.set(pageNr, []byte(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> /XObject << %s>> >> /Contents %d 0 R >>",
			root, font, xobjects.String(), contentNr)))
		b.set(contentNr, stream("", []byte(content.String())))
	}

	b.set(catalog, []byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", root)))
	b.set(root, []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))))
	b.set(font, []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"))
	return b.bytes(catalog)
}

func imageObject(img Image) []byte {
	const dict = "/Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /FlateDecode "
	if img.Corrupt {
		return stream(dict, []byte("this is not a deflate stream"))
	}
	pixels := bytes.Repeat([]byte{img.Color.R, img.Color.G, img.Color.B}, 4)
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(pixels)
	_ = zw.Close()
	return stream(dict, buf.Bytes())
}

func stream(dict string, data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s/Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	return buf.Bytes()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}

type builder struct {
	objects [][]byte
}

// reserve allocates the next object number.
func (b *builder) reserve() int {
	b.objects = append(b.objects, nil)
	return len(b.objects)
}

func (b *builder) set(nr int, body []byte) {
	b.objects[nr-1] = body
}

func (b *builder) bytes(catalog int) []byte {
	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		out.Write(body)
		out.WriteString("\nendobj\n")
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(b.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects)+1, catalog, xref)
	return out.Bytes()
}
