package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{
					{"text": "Hello "},
					{"text": "world"},
				}}},
			},
		})
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Model:    "test-model",
	}, nil)

	text, err := c.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	require.Equal(t, "Hello world", text)
	require.Equal(t, "/v1beta/models/test-model:generateContent", gotPath)
	require.Equal(t, "test-key", gotKey)
	require.Equal(t, "the prompt", gotBody.Contents[0].Parts[0].Text)
}

func TestGeminiEmptyResponseIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{Endpoint: srv.URL, APIKey: "k"}, nil)

	text, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestGeminiHTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "quota"}})
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{Endpoint: srv.URL, APIKey: "k"}, nil)

	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	c := NewGeminiClient(GeminiConfig{}, nil)

	_, err := c.Generate(context.Background(), "prompt")
	require.Error(t, err)
}
