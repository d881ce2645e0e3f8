package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

// newEmbeddingServer serves per-item vectors [offset+i] unless shouldFail
// decides the request errors.
func newEmbeddingServer(t *testing.T, calls *atomic.Int32, shouldFail func(req embeddingRequest, call int32) bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := calls.Add(1)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if shouldFail != nil && shouldFail(req, call) {
			http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
			return
		}

		resp := embeddingResponse{Object: "list", Model: req.Model}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Object:    "embedding",
				Embedding: []float32{float32(len(text))},
				Index:     i,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestEmbedBatch_ChunksRequests(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newEmbeddingServer(t, &calls, nil)
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "text-embedding-3-small", WithChunkSize(2))
	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		require.Len(t, v, 1)
		assert.InDelta(t, float64(i+1), v[0], 1e-6)
	}
}

func TestEmbedBatch_FailedChunkLeavesNilEntries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newEmbeddingServer(t, &calls, func(req embeddingRequest, _ int32) bool {
		return req.Input[0] == "bad"
	})
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "text-embedding-3-small",
		WithChunkSize(2), WithMaxAttempts(1))
	vectors, err := client.EmbedBatch(context.Background(), []string{"ok", "ok", "bad", "bad", "last"})
	require.NoError(t, err)
	require.Len(t, vectors, 5)

	assert.NotNil(t, vectors[0])
	assert.NotNil(t, vectors[1])
	assert.Nil(t, vectors[2])
	assert.Nil(t, vectors[3])
	assert.NotNil(t, vectors[4])
}

func TestEmbedBatch_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newEmbeddingServer(t, &calls, func(_ embeddingRequest, call int32) bool {
		return call == 1
	})
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "text-embedding-3-small", WithMaxAttempts(2))
	vectors, err := client.EmbedBatch(context.Background(), []string{"hello"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, vectors, 1)
	assert.NotNil(t, vectors[0])
}

func TestEmbedBatch_SlowRequestTimesOut(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL, "text-embedding-3-small",
		WithTimeout(50*time.Millisecond), WithMaxAttempts(1))
	vectors, err := client.EmbedBatch(context.Background(), []string{"hello"})

	// The per-request timeout fails the chunk without failing the batch:
	// the caller's context is untouched.
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Nil(t, vectors[0])
}

func TestEmbedBatch_Empty(t *testing.T) {
	t.Parallel()

	client := NewClient("test-key", "", "text-embedding-3-small")
	vectors, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedBatch_CanceledContext(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newEmbeddingServer(t, &calls, func(embeddingRequest, int32) bool { return true })
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", srv.URL, "text-embedding-3-small", WithMaxAttempts(1))
	_, err := client.EmbedBatch(ctx, []string{"hello"})
	assert.ErrorIs(t, err, context.Canceled)
}
