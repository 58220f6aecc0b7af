package embeddings

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalize(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		vec, err := Normalize([]float64{3, 4})
		require.NoError(t, err)
		assert.InDelta(t, 0.6, vec[0], 1e-6)
		assert.InDelta(t, 0.8, vec[1], 1e-6)
	})

	t.Run("zero norm", func(t *testing.T) {
		_, err := Normalize([]float64{0, 0, 0})
		assert.ErrorIs(t, err, ErrEmbedding)
	})

	t.Run("nan", func(t *testing.T) {
		_, err := Normalize([]float64{math.NaN(), 1})
		assert.ErrorIs(t, err, ErrEmbedding)
	})
}

func TestTokenize(t *testing.T) {
	t.Run("pads short input", func(t *testing.T) {
		tokens := Tokenize("Hello, World!", 77)
		require.Len(t, tokens, 77)
		assert.Equal(t, "hello", tokens[0])
		assert.Equal(t, "world", tokens[1])
		assert.Equal(t, padToken, tokens[2])
	})

	t.Run("truncates long input silently", func(t *testing.T) {
		text := strings.Repeat("word ", 200)
		tokens := Tokenize(text, 77)
		require.Len(t, tokens, 77)
		for _, tok := range tokens {
			assert.Equal(t, "word", tok)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		assert.Len(t, Tokenize("x", 0), DefaultMaxTokens)
	})
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	e := NewHashEmbedder(0, 0)
	ctx := context.Background()

	texts := []string{
		"a red square",
		"Photosynthesis converts light energy into chemical energy.",
		strings.Repeat("long input that exceeds the token window ", 40),
	}
	for _, text := range texts {
		vec, err := e.EmbedText(ctx, text)
		require.NoError(t, err)
		assert.Len(t, vec, DefaultDimension)
		assert.InDelta(t, 1.0, Norm(vec), 1e-5)
	}

	images := []image.Image{
		solidImage(8, 8, color.RGBA{R: 255, A: 255}),
		solidImage(300, 300, color.RGBA{B: 200, G: 40, A: 255}),
		image.NewGray(image.Rect(0, 0, 4, 4)),
	}
	for _, img := range images {
		vec, err := e.EmbedImage(ctx, img)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, Norm(vec), 1e-5)
	}
}

func TestHashEmbedder_Degenerate(t *testing.T) {
	e := NewHashEmbedder(0, 0)
	ctx := context.Background()

	_, err := e.EmbedText(ctx, "   ...   ")
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = e.EmbedImage(ctx, image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = e.EmbedImage(ctx, nil)
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestHashEmbedder_SharedSpace(t *testing.T) {
	e := NewHashEmbedder(0, 0)
	ctx := context.Background()

	redImage, err := e.EmbedImage(ctx, solidImage(32, 32, color.RGBA{R: 230, G: 20, B: 20, A: 255}))
	require.NoError(t, err)
	blueImage, err := e.EmbedImage(ctx, solidImage(32, 32, color.RGBA{R: 10, G: 30, B: 220, A: 255}))
	require.NoError(t, err)

	redText, err := e.EmbedText(ctx, "a red square")
	require.NoError(t, err)
	blueText, err := e.EmbedText(ctx, "the blue ocean")
	require.NoError(t, err)

	assert.Greater(t, Dot(redText, redImage), Dot(blueText, redImage))
	assert.Greater(t, Dot(blueText, blueImage), Dot(redText, blueImage))
	assert.Greater(t, Dot(redText, redImage), 0.3)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(0, 0)
	a, err := e.EmbedText(context.Background(), "same input")
	require.NoError(t, err)
	b, err := e.EmbedText(context.Background(), "same input")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashEmbedder_Cancelled(t *testing.T) {
	e := NewHashEmbedder(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedText(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToRGB_DropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 2, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	src.SetNRGBA(3, 3, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	out := ToRGB(src)
	assert.Equal(t, image.Rect(0, 0, 2, 2), out.Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, uint8(255), out.RGBAAt(1, 1).A)
}

func TestClassifyColour(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    string
	}{
		{"black", 5, 5, 5, "black"},
		{"white", 250, 250, 250, "white"},
		{"gray", 128, 128, 128, "gray"},
		{"red", 255, 0, 0, "red"},
		{"green", 0, 200, 0, "green"},
		{"blue", 0, 0, 255, "blue"},
		{"yellow", 255, 230, 0, "yellow"},
		{"brown", 130, 70, 20, "brown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, colourNames[classifyColour(tt.r, tt.g, tt.b)])
		})
	}
}

func TestEmbedImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "green.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solidImage(4, 4, color.RGBA{G: 255, A: 255})))
	require.NoError(t, f.Close())

	e := NewHashEmbedder(0, 0)
	fromFile, err := EmbedImageFile(context.Background(), e, path)
	require.NoError(t, err)
	fromBitmap, err := e.EmbedImage(context.Background(), solidImage(4, 4, color.RGBA{G: 255, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, fromBitmap, fromFile)

	_, err = EmbedImageFile(context.Background(), e, filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestNew(t *testing.T) {
	e, err := New(Options{Backend: "hash"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hash", e.Name())
	assert.Equal(t, DefaultDimension, e.Dimension())

	e, err = New(Options{Backend: "clip", Dimension: 512}, nil)
	require.NoError(t, err)
	assert.Equal(t, "clip", e.Name())

	_, err = New(Options{Backend: "word2vec"}, nil)
	assert.Error(t, err)
}

func TestCLIPEmbedder_RejectsEmptyInput(t *testing.T) {
	e := NewCLIPEmbedder(CLIPConfig{PythonPath: "/nonexistent/python"}, nil)
	defer e.Close()

	_, err := e.EmbedText(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = e.EmbedImage(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestCLIPEmbedder_MissingInterpreter(t *testing.T) {
	e := NewCLIPEmbedder(CLIPConfig{PythonPath: "/nonexistent/python"}, nil)
	defer e.Close()

	_, err := e.EmbedText(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start clip worker")
}

// fakeWorker writes a shell script that stands in for the python worker.
func fakeWorker(t *testing.T, script string) CLIPConfig {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	path := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0600))
	return CLIPConfig{PythonPath: sh, ScriptPath: path, Dimension: 2}
}

func TestCLIPEmbedder_Worker(t *testing.T) {
	cfg := fakeWorker(t, `while read -r line; do echo '{"embedding":[3,4]}'; done`)
	e := NewCLIPEmbedder(cfg, nil)
	defer e.Close()

	for range 2 {
		vec, err := e.EmbedText(context.Background(), "hello")
		require.NoError(t, err)
		require.Len(t, vec, 2)
		assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
	}
}

func TestCLIPEmbedder_CancelStopsWorker(t *testing.T) {
	cfg := fakeWorker(t, "read -r line\nexec sleep 30\n")
	e := NewCLIPEmbedder(cfg, nil)
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.EmbedText(ctx, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), clipDrainTimeout, "pending read ends once the worker is killed")

	e.mu.Lock()
	assert.Nil(t, e.proc)
	e.mu.Unlock()
}
