package vectorstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navassist/internal/config"
	"navassist/internal/domain"
	"navassist/internal/vectorstore/memory"
	"navassist/internal/vectorstore/qdrant"
)

func TestNew_MemoryByDefault(t *testing.T) {
	st, err := New(config.VectorStoreConfig{}, "abc")
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, st)

	_, err = New(config.VectorStoreConfig{Type: "faiss"}, "abc")
	assert.Error(t, err)
}

func TestNew_QdrantCollectionPerCorpusVersion(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"result":[{"id":0,"score":1,"payload":{"content":"rope"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	cfg := config.VectorStoreConfig{Type: "qdrant", Qdrant: &config.QdrantConfig{URL: server.URL, Collection: "navassist"}}
	oldFP := strings.Repeat("a", 64)
	newFP := strings.Repeat("b", 64)
	ctx := context.Background()

	oldStore, err := New(cfg, oldFP)
	require.NoError(t, err)
	assert.Equal(t, "navassist_aaaaaaaaaaaa", oldStore.(*qdrant.Storage).Collection())
	require.NoError(t, oldStore.Init(ctx, 2))
	require.NoError(t, oldStore.Upsert(ctx, []domain.Document{{ID: 0, Content: "rope"}}, [][]float64{{1, 0}}))

	// a rebuild for a changed corpus clears only its own collection
	newStore, err := New(cfg, newFP)
	require.NoError(t, err)
	require.NoError(t, newStore.Clear(ctx))

	res, err := oldStore.Search(ctx, []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, "DELETE /collections/navassist_bbbbbbbbbbbb")
	assert.NotContains(t, seen, "DELETE /collections/navassist_aaaaaaaaaaaa")
	assert.Contains(t, seen, "POST /collections/navassist_aaaaaaaaaaaa/points/search")
}

func TestCollectionFor(t *testing.T) {
	assert.Equal(t, "docs", collectionFor("docs", ""))
	assert.Equal(t, "docs_abc", collectionFor("docs", "abc"))
	assert.Equal(t, "docs_0123456789ab", collectionFor("docs", "0123456789abcdef"))
}
