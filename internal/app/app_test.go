package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RSinthu/QuizGenerator/config"
	"github.com/RSinthu/QuizGenerator/internal/transcript"
)

func TestNewMinimal(t *testing.T) {
	cfg := config.Default()

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "hash", a.Embedder.Name())
	assert.Equal(t, 0, a.Generator.Len())
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.IsType(t, &transcript.Chain{}, a.Transcripts)
	assert.Equal(t, []string{"captions", "loader", "description"}, a.Transcripts.(*transcript.Chain).Names())
	require.NotNil(t, a.Quizzes)
	require.NotNil(t, a.Summaries)
}

func TestNewProviders(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.Gemini.APIKey = "g-key"
	cfg.Generation.Groq.APIKey = "q-key"
	cfg.Generation.Ollama.Enabled = true

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 3, a.Generator.Len())
	assert.Equal(t, "gemini>groq>ollama", a.Generator.Name())
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	assert.IsType(t, &transcript.Cache{}, a.Transcripts)
}

func TestNewUnreachableStores(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Redis.Addr = addr
	cfg.Database.ConnectionString = "postgres://nobody@127.0.0.1:1/quizgen?connect_timeout=1"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err, "optional stores must not be fatal")
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.DB)
	assert.IsType(t, &transcript.Chain{}, a.Transcripts)
}

func TestServerRoutes(t *testing.T) {
	a, err := New(context.Background(), config.Default(), nil)
	require.NoError(t, err)
	defer a.Close()

	h := a.Server().Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history/quizzes", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "history is off without a database")
}
