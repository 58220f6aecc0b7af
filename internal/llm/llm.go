// Package llm calls hosted and local text generation models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrGeneration is returned when no provider produced an answer.
var ErrGeneration = errors.New("generation failed")

// Attachment is an inline image sent with a prompt.
type Attachment struct {
	Label    string
	MIMEType string
	Data     []byte
}

// Request is one generation call.
type Request struct {
	Prompt      string
	Attachments []Attachment
	// JSON asks providers that support it to constrain output to JSON.
	JSON bool
}

// Generator produces text from a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// StatusError is a non-2xx reply from a provider API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Body)
}

func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
