package embeddings

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCLIPModel is the checkpoint the worker loads when none is configured.
const DefaultCLIPModel = "openai/clip-vit-base-patch32"

// clipDrainTimeout bounds the wait for a killed worker's stdout to close.
const clipDrainTimeout = 5 * time.Second

// CLIPEmbedder embeds text and images with a CLIP model hosted in a
// long-lived python worker. Requests are serialised over the worker's
// stdin/stdout; the worker starts on first use.
type CLIPEmbedder struct {
	pythonPath string
	scriptPath string
	model      string
	dim        int
	maxTokens  int
	logger     *zap.Logger

	mu   sync.Mutex
	proc *clipProcess
}

type clipProcess struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	tempScript string
}

type clipRequest struct {
	Op        string `json:"op"`
	Text      string `json:"text,omitempty"`
	Image     string `json:"image,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type clipResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// CLIPConfig configures the CLIP worker.
type CLIPConfig struct {
	PythonPath string
	ScriptPath string
	Model      string
	Dimension  int
	MaxTokens  int
}

// NewCLIPEmbedder creates a CLIP embedder. The worker is not started until
// the first embedding call.
func NewCLIPEmbedder(cfg CLIPConfig, logger *zap.Logger) *CLIPEmbedder {
	if cfg.PythonPath == "" {
		cfg.PythonPath = "python3"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCLIPModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIPEmbedder{
		pythonPath: cfg.PythonPath,
		scriptPath: cfg.ScriptPath,
		model:      cfg.Model,
		dim:        cfg.Dimension,
		maxTokens:  cfg.MaxTokens,
		logger:     logger,
	}
}

// Name returns the backend identifier.
func (e *CLIPEmbedder) Name() string { return "clip" }

// Dimension returns the vector size.
func (e *CLIPEmbedder) Dimension() int { return e.dim }

// EmbedText embeds text; the worker truncates at the token limit.
func (e *CLIPEmbedder) EmbedText(ctx context.Context, text string) (Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrEmbedding)
	}
	return e.call(ctx, clipRequest{Op: "text", Text: text, MaxTokens: e.maxTokens})
}

// EmbedImage embeds a decoded bitmap.
func (e *CLIPEmbedder) EmbedImage(ctx context.Context, img image.Image) (Vector, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrEmbedding)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, ToRGB(img)); err != nil {
		return nil, fmt.Errorf("%w: failed to encode image: %v", ErrEmbedding, err)
	}
	return e.call(ctx, clipRequest{Op: "image", Image: base64.StdEncoding.EncodeToString(buf.Bytes())})
}

func (e *CLIPEmbedder) call(ctx context.Context, req clipRequest) (Vector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc == nil {
		proc, err := e.start()
		if err != nil {
			return nil, err
		}
		e.proc = proc
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if _, err := e.proc.stdin.Write(append(line, '\n')); err != nil {
		e.stopLocked(nil)
		return nil, fmt.Errorf("failed to write to clip worker: %w", err)
	}

	done := make(chan clipRead, 1)
	stdout := e.proc.stdout
	go func() {
		data, err := stdout.ReadBytes('\n')
		done <- clipRead{data: data, err: err}
	}()

	var res clipRead
	select {
	case <-ctx.Done():
		// The pending response would desynchronise the pipe, so the worker goes.
		e.stopLocked(done)
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		e.stopLocked(nil)
		return nil, fmt.Errorf("failed to read from clip worker: %w", res.err)
	}

	var resp clipResponse
	if err := json.Unmarshal(res.data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode clip response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: clip worker: %s", ErrEmbedding, resp.Error)
	}
	if len(resp.Embedding) != e.dim {
		return nil, fmt.Errorf("%w: clip returned %d dimensions, want %d", ErrEmbedding, len(resp.Embedding), e.dim)
	}
	return Normalize(resp.Embedding)
}

func (e *CLIPEmbedder) start() (*clipProcess, error) {
	proc := &clipProcess{}
	scriptPath := e.scriptPath
	if scriptPath == "" {
		f, err := os.CreateTemp("", "clip_worker_*.py")
		if err != nil {
			return nil, fmt.Errorf("failed to create clip script: %w", err)
		}
		if _, err := f.WriteString(clipWorkerScript); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, fmt.Errorf("failed to write clip script: %w", err)
		}
		f.Close()
		scriptPath = f.Name()
		proc.tempScript = scriptPath
	}

	cmd := exec.Command(e.pythonPath, scriptPath, e.model)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open clip stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open clip stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if proc.tempScript != "" {
			os.Remove(proc.tempScript)
		}
		return nil, fmt.Errorf("failed to start clip worker: %w", err)
	}

	proc.cmd = cmd
	proc.stdin = stdin
	proc.stdout = bufio.NewReader(stdout)
	e.logger.Info("clip worker started",
		zap.String("model", e.model),
		zap.String("script", scriptPath),
		zap.Int("pid", cmd.Process.Pid))
	return proc, nil
}

// clipRead is one response line read from the worker.
type clipRead struct {
	data []byte
	err  error
}

// stopLocked kills the worker and reaps it. reading is the read still in
// flight on its stdout, if any; Wait closes the pipe, so it runs only once
// that read has returned.
func (e *CLIPEmbedder) stopLocked(reading <-chan clipRead) {
	if e.proc == nil {
		return
	}
	_ = e.proc.stdin.Close()
	if e.proc.cmd.Process != nil {
		_ = e.proc.cmd.Process.Kill()
	}
	if reading != nil {
		select {
		case <-reading:
		case <-time.After(clipDrainTimeout):
			e.logger.Warn("clip worker stdout still open after kill")
		}
	}
	_ = e.proc.cmd.Wait()
	if e.proc.tempScript != "" {
		os.Remove(e.proc.tempScript)
	}
	e.logger.Info("clip worker stopped")
	e.proc = nil
}

// Close stops the worker if it is running.
func (e *CLIPEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(nil)
	return nil
}

// clipWorkerScript answers one JSON request per stdin line with one JSON
// response per stdout line. Features are returned unnormalised.
const clipWorkerScript = `
import sys
import io
import json
import base64
import torch
from PIL import Image
from transformers import CLIPProcessor, CLIPModel

model_name = sys.argv[1] if len(sys.argv) > 1 else "openai/clip-vit-base-patch32"
device = "cuda" if torch.cuda.is_available() else "cpu"
model = CLIPModel.from_pretrained(model_name).to(device).eval()
processor = CLIPProcessor.from_pretrained(model_name)

for line in sys.stdin:
    line = line.strip()
    if not line:
        continue
    try:
        req = json.loads(line)
        with torch.no_grad():
            if req["op"] == "text":
                inputs = processor(
                    text=req["text"],
                    return_tensors="pt",
                    padding="max_length",
                    truncation=True,
                    max_length=req.get("max_tokens", 77),
                ).to(device)
                features = model.get_text_features(**inputs)
            else:
                data = base64.b64decode(req["image"])
                image = Image.open(io.BytesIO(data)).convert("RGB")
                inputs = processor(images=image, return_tensors="pt").to(device)
                features = model.get_image_features(**inputs)
        out = {"embedding": features[0].cpu().tolist()}
    except Exception as e:
        out = {"error": str(e)}
    sys.stdout.write(json.dumps(out) + "\n")
    sys.stdout.flush()
`
