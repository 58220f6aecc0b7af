package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ErrNoModels is returned when the server has no models pulled.
var ErrNoModels = errors.New("no models available")

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

type listModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Preferred families, best first. Vision models can read page images.
var (
	visionModels = []string{"llama3.2-vision", "qwen2.5vl", "gemma3", "llava", "minicpm-v", "bakllava"}
	textModels   = []string{"llama3.3", "llama3.2", "llama3.1", "qwen2.5", "mistral", "gemma2", "llama3"}
)

// ModelSelector picks a model from those installed on the server.
type ModelSelector struct {
	client *Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists all available Ollama models
func (ms *ModelSelector) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ms.client.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ms.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result listModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Models, nil
}

// SelectModel returns preferred if it is installed, otherwise the best
// installed model. With vision set, vision families are tried first.
func (ms *ModelSelector) SelectModel(ctx context.Context, preferred string, vision bool) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}
	if len(models) == 0 {
		return "", ErrNoModels
	}
	return pickModel(models, preferred, vision), nil
}

func pickModel(models []ModelInfo, preferred string, vision bool) string {
	if preferred != "" {
		for _, m := range models {
			if m.Name == preferred || strings.TrimSuffix(m.Name, ":latest") == preferred {
				return m.Name
			}
		}
	}

	families := textModels
	if vision {
		families = append(append([]string{}, visionModels...), textModels...)
	}
	for _, family := range families {
		for _, m := range models {
			if strings.Contains(strings.ToLower(m.Name), family) {
				return m.Name
			}
		}
	}

	// Largest is usually the most capable.
	sorted := append([]ModelInfo(nil), models...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Size > sorted[j].Size })
	return sorted[0].Name
}

// IsVisionModel reports whether name belongs to a family that accepts images.
func IsVisionModel(name string) bool {
	lower := strings.ToLower(name)
	for _, family := range visionModels {
		if strings.Contains(lower, family) {
			return true
		}
	}
	return false
}
