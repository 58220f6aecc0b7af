package embeddings

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxColourSamples bounds the pixels inspected per image.
const maxColourSamples = 1 << 16

// DecodeImageFile opens and decodes an image file in any registered format.
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image: %v", ErrEmbedding, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image %s: %v", ErrEmbedding, path, err)
	}
	return img, nil
}

// ToRGB converts img to an opaque RGBA bitmap, discarding alpha so every
// pixel carries only its three colour channels.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rgba, ok := img.(*image.RGBA); ok && isOpaque(rgba) {
		draw.Draw(out, out.Bounds(), rgba, b.Min, draw.Src)
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

func isOpaque(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// colourNames is the vocabulary images are projected onto.
var colourNames = []string{
	"black", "white", "gray", "red", "orange", "brown",
	"yellow", "green", "cyan", "blue", "purple", "pink",
}

// classifyColour maps an RGB pixel to an index into colourNames.
func classifyColour(r, g, b uint8) int {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	v := maxC
	delta := maxC - minC

	if v < 0.2 {
		return 0
	}
	s := 0.0
	if maxC > 0 {
		s = delta / maxC
	}
	if s < 0.15 {
		if v > 0.85 {
			return 1
		}
		return 2
	}

	var h float64
	switch maxC {
	case rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	switch {
	case h < 15 || h >= 345:
		return 3
	case h < 45:
		if v < 0.6 {
			return 5
		}
		return 4
	case h < 70:
		return 6
	case h < 170:
		return 7
	case h < 200:
		return 8
	case h < 260:
		return 9
	case h < 290:
		return 10
	default:
		return 11
	}
}

// colourHistogram returns the share of sampled pixels per colour name.
func colourHistogram(img *image.RGBA) []float64 {
	hist := make([]float64, len(colourNames))
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return hist
	}
	stride := 1
	for total/(stride*stride) > maxColourSamples {
		stride++
	}

	var n float64
	for y := b.Min.Y; y < b.Max.Y; y += stride {
		for x := b.Min.X; x < b.Max.X; x += stride {
			c := img.RGBAAt(x, y)
			hist[classifyColour(c.R, c.G, c.B)]++
			n++
		}
	}
	for i := range hist {
		hist[i] /= n
	}
	return hist
}

// imageFeatures projects an image onto the colour vocabulary in hash space.
func (h *HashEmbedder) imageFeatures(img image.Image) []float64 {
	raw := make([]float64, h.dim)
	for i, share := range colourHistogram(ToRGB(img)) {
		if share == 0 {
			continue
		}
		h.addToken(raw, colourNames[i], share)
	}
	return raw
}
