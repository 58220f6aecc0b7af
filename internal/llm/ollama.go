package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/RSinthu/QuizGenerator/internal/ollama"
)

// Ollama generates with a local Ollama server. Without a configured model
// the best installed one is picked on first use; images are only sent to
// vision models.
type Ollama struct {
	client   *ollama.Client
	selector *ollama.ModelSelector
	model    string
	logger   *zap.Logger

	mu       sync.Mutex
	resolved map[bool]string
}

// NewOllama wraps an Ollama client.
func NewOllama(client *ollama.Client, model string, logger *zap.Logger) *Ollama {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		client:   client,
		selector: ollama.NewModelSelector(client),
		model:    model,
		logger:   logger,
		resolved: make(map[bool]string),
	}
}

// Name returns the provider name.
func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) resolveModel(ctx context.Context, vision bool) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if name, ok := o.resolved[vision]; ok {
		return name, nil
	}
	name, err := o.selector.SelectModel(ctx, o.model, vision)
	if err != nil {
		return "", fmt.Errorf("failed to select ollama model: %w", err)
	}
	o.logger.Info("ollama model selected", zap.String("model", name), zap.Bool("vision", vision))
	o.resolved[vision] = name
	return name, nil
}

// Generate runs the prompt on the selected model.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	model, err := o.resolveModel(ctx, len(req.Attachments) > 0)
	if err != nil {
		return "", err
	}

	genReq := &ollama.GenerateRequest{Model: model, Prompt: req.Prompt}
	if req.JSON {
		genReq.Format = "json"
	}
	if ollama.IsVisionModel(model) {
		var labels []string
		for _, a := range req.Attachments {
			genReq.Images = append(genReq.Images, base64.StdEncoding.EncodeToString(a.Data))
			labels = append(labels, strings.TrimSpace(a.Label))
		}
		if len(labels) > 0 {
			genReq.Prompt += "\n\nImages in order: " + strings.Join(labels, " ")
		}
	}
	return o.client.Generate(ctx, genReq)
}
