package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Streamed(t *testing.T) {
	var got GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprintln(w, `{"response":"[{\"id\":","done":false}`)
		fmt.Fprintln(w, `{"response":"1}]","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true,"done_reason":"stop"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	out, err := c.Generate(context.Background(), &GenerateRequest{
		Model:  "llava",
		Prompt: "describe",
		Images: []string{"aGVsbG8="},
		Stream: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, out)
	assert.Equal(t, []string{"aGVsbG8="}, got.Images)
	assert.True(t, got.Stream)
}

func TestGenerate_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Generate(context.Background(), &GenerateRequest{Model: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
		assert.Contains(t, err.Error(), "model not found")
	})

	t.Run("in-stream error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"error":"out of memory"}`)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Generate(context.Background(), &GenerateRequest{Model: "x"})
		assert.ErrorContains(t, err, "out of memory")
	})
}

func TestSelectModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		fmt.Fprint(w, `{"models":[
			{"name":"phi3:latest","size":100},
			{"name":"mistral:7b","size":400},
			{"name":"llava:13b","size":800}
		]}`)
	}))
	defer srv.Close()

	ms := NewModelSelector(NewClient(srv.URL, time.Second))
	ctx := context.Background()

	name, err := ms.SelectModel(ctx, "phi3", false)
	require.NoError(t, err)
	assert.Equal(t, "phi3:latest", name)

	name, err = ms.SelectModel(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, "mistral:7b", name)

	name, err = ms.SelectModel(ctx, "missing", true)
	require.NoError(t, err)
	assert.Equal(t, "llava:13b", name)
}

func TestSelectModel_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[]}`)
	}))
	defer srv.Close()

	_, err := NewModelSelector(NewClient(srv.URL, time.Second)).SelectModel(context.Background(), "", false)
	assert.ErrorIs(t, err, ErrNoModels)
}

func TestPickModel_LargestFallback(t *testing.T) {
	models := []ModelInfo{{Name: "tiny", Size: 1}, {Name: "huge", Size: 9}, {Name: "mid", Size: 5}}
	assert.Equal(t, "huge", pickModel(models, "", false))
	assert.Equal(t, "tiny", models[0].Name)
}

func TestIsVisionModel(t *testing.T) {
	assert.True(t, IsVisionModel("LLaVA:7b"))
	assert.True(t, IsVisionModel("llama3.2-vision:11b"))
	assert.False(t, IsVisionModel("mistral"))
}
