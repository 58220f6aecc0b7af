package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Groq defaults.
const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultGroqTimeout = 60 * time.Second
)

// GroqConfig configures the Groq provider.
type GroqConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
}

// Groq calls the OpenAI-compatible Groq chat completions API. It is text
// only; attachments are reduced to their labels.
type Groq struct {
	client      *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGroq creates a Groq provider.
func NewGroq(cfg GroqConfig) (*Groq, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGroqTimeout
	}
	return &Groq{
		client:      &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (g *Groq) Name() string { return "groq" }

// Generate sends the prompt as a single user message.
func (g *Groq) Generate(ctx context.Context, req Request) (string, error) {
	prompt := req.Prompt
	if len(req.Attachments) > 0 {
		labels := make([]string, 0, len(req.Attachments))
		for _, a := range req.Attachments {
			if a.Label != "" {
				labels = append(labels, strings.TrimSpace(a.Label))
			}
		}
		if len(labels) > 0 {
			prompt += "\n\n(Images not shown: " + strings.Join(labels, " ") + ")"
		}
	}

	body := chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
	}
	if req.JSON {
		// json_object mode only returns objects, and quizzes are arrays.
		body.Messages = append([]chatMessage{{Role: "system", Content: "Reply with JSON only."}}, body.Messages...)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(g.Name(), resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("groq: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", errors.New("groq: empty response")
	}
	return out.Choices[0].Message.Content, nil
}
