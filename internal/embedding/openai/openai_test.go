package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func writeEmbeddings(w http.ResponseWriter, n int) {
	data := make([]map[string]any, n)
	for i := range data {
		data[i] = map[string]any{
			"object":    "embedding",
			"index":     i,
			"embedding": []float32{3, 4},
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test"})
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: url + "/v1", APIKeyEnv: "TEST_OPENAI_KEY", Model: "test-embed", BatchSize: 2})
	require.NoError(t, err)
	c.sleep = func(time.Duration) {}
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(Config{APIKeyEnv: "NAVASSIST_DEFINITELY_UNSET"})
	assert.Error(t, err)
}

func TestEmbed_NormalizesAndRecordsDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)
		writeEmbeddings(w, len(req.Input))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	vec, err := c.Embed(context.Background(), "rope")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, vec, 1e-6)
	assert.Equal(t, 2, c.Dimension())
	assert.Equal(t, "openai:test-embed", c.Name())
}

func TestEmbed_SingleAttemptOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Embed(context.Background(), "rope")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedBatch_SplitsAndRetriesRateLimits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Input), 2)
		writeEmbeddings(w, len(req.Input))
	}))
	defer server.Close()

	vecs, err := newTestClient(t, server.URL).EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	assert.Equal(t, int32(3), calls.Load(), "one rejected call plus two batches")
}

func TestEmbedBatch_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).EmbedBatch(context.Background(), []string{"a"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryDelay_Capped(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, retryDelay(0))
	assert.Equal(t, 400*time.Millisecond, retryDelay(1))
	assert.Equal(t, 5*time.Second, retryDelay(10))
}

func TestEmbed_ConcurrentFirstCallsRecordDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeEmbeddings(w, len(req.Input))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Embed(context.Background(), "rope")
			assert.NoError(t, err)
			_ = c.Dimension()
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, c.Dimension())
}
