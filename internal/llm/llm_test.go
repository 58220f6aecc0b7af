package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RSinthu/QuizGenerator/internal/ollama"
)

type mockGenerator struct {
	mock.Mock
	name string
}

func (m *mockGenerator) Name() string { return m.name }

func (m *mockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestGemini_Generate(t *testing.T) {
	var body geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"[{\"id\": 1"},{"text":"}]"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "secret", Model: "gemini-test", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), Request{
		Prompt: "Question: q",
		Attachments: []Attachment{
			{Label: "\n[Image from page 2]:\n", MIMEType: "image/png", Data: []byte("png")},
		},
		JSON: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"id": 1}]`, out)

	require.Len(t, body.Contents, 1)
	parts := body.Contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "Question: q", parts[0].Text)
	assert.Equal(t, "\n[Image from page 2]:\n", parts[1].Text)
	require.NotNil(t, parts[2].InlineData)
	assert.Equal(t, "image/png", parts[2].InlineData.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), parts[2].InlineData.Data)
	assert.Equal(t, "application/json", body.GenerationConfig.ResponseMIMEType)
}

func TestGemini_Errors(t *testing.T) {
	_, err := NewGemini(GeminiConfig{})
	assert.Error(t, err)

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusTooManyRequests, `{"error":"quota"}`, "429"},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, "SAFETY"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidates"},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`, "MAX_TOKENS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			g, err := NewGemini(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = g.Generate(context.Background(), Request{Prompt: "p"})
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGemini_KeyNotInErrors(t *testing.T) {
	const key = "SECRET-KEY-123"
	g, err := NewGemini(GeminiConfig{APIKey: key, BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)

	_, err = NewChain(nil, g).Generate(context.Background(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrGeneration)
	assert.NotContains(t, err.Error(), key)
}

func TestGroq_Generate(t *testing.T) {
	var body chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"a summary"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), Request{
		Prompt:      "summarise",
		Attachments: []Attachment{{Label: "[Image from page 0]:", Data: []byte("x")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a summary", out)
	assert.Equal(t, DefaultGroqModel, body.Model)
	require.Len(t, body.Messages, 1)
	assert.Contains(t, body.Messages[0].Content, "summarise")
	assert.Contains(t, body.Messages[0].Content, "[Image from page 0]:")
}

func TestGroq_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), Request{Prompt: "p", JSON: true})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "groq", statusErr.Provider)
}

func TestOllama_Generate(t *testing.T) {
	var got ollama.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			fmt.Fprint(w, `{"models":[{"name":"mistral:7b","size":4},{"name":"llava:7b","size":5}]}`)
		case "/api/generate":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			fmt.Fprintln(w, `{"response":"ok","done":true}`)
		}
	}))
	defer srv.Close()

	o := NewOllama(ollama.NewClient(srv.URL, time.Second), "", nil)

	out, err := o.Generate(context.Background(), Request{
		Prompt:      "describe",
		Attachments: []Attachment{{Label: "[Image from page 1]:", Data: []byte("img")}},
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "llava:7b", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.Equal(t, []string{base64.StdEncoding.EncodeToString([]byte("img"))}, got.Images)

	_, err = o.Generate(context.Background(), Request{Prompt: "text only"})
	require.NoError(t, err)
	assert.Equal(t, "mistral:7b", got.Model)
	assert.Empty(t, got.Images)
}

func TestChain_FallsBack(t *testing.T) {
	first := &mockGenerator{name: "gemini"}
	second := &mockGenerator{name: "groq"}
	req := Request{Prompt: "p"}

	first.On("Generate", mock.Anything, req).Return("", errors.New("quota exceeded"))
	second.On("Generate", mock.Anything, req).Return("answer", nil)

	chain := NewChain(nil, first, second)
	out, err := chain.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, "gemini>groq", chain.Name())
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestChain_StopsAtFirstSuccess(t *testing.T) {
	first := &mockGenerator{name: "gemini"}
	second := &mockGenerator{name: "groq"}
	first.On("Generate", mock.Anything, mock.Anything).Return("first", nil)

	out, err := NewChain(nil, first, second).Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "first", out)
	second.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestChain_AllFail(t *testing.T) {
	first := &mockGenerator{name: "gemini"}
	second := &mockGenerator{name: "groq"}
	first.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))
	second.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("bad gateway"))

	_, err := NewChain(nil, first, second).Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Contains(t, err.Error(), "gemini: quota exceeded")
	assert.Contains(t, err.Error(), "groq: bad gateway")
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain(nil).Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestChain_CancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &mockGenerator{name: "gemini"}
	second := &mockGenerator{name: "groq"}
	first.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return("", context.Canceled)

	_, err := NewChain(nil, first, second).Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	second.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}
