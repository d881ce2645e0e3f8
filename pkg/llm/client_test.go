package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, content string, lastReq *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"object": "chat.completion",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	var req chatRequest
	srv := newChatServer(t, "  derivation \n", &req)
	defer srv.Close()

	gen := NewClient("test-key", srv.URL, "gpt-4o-mini")
	out, err := gen.Generate(context.Background(), "Classify this question", 20, 0.1)
	require.NoError(t, err)

	assert.Equal(t, "derivation", out)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 20, req.MaxTokens)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "Classify this question", req.Messages[0].Content)
}

func TestGenerate_EmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()

	gen := NewClient("test-key", srv.URL, "gpt-4o-mini")
	_, err := gen.Generate(context.Background(), "prompt", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerate_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gen := NewClient("test-key", srv.URL, "gpt-4o-mini")
	_, err := gen.Generate(context.Background(), "prompt", 10, 0)
	assert.Error(t, err)
}
