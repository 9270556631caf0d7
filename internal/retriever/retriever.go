// Package retriever ranks corpus documents against a query and decides when
// the local corpus has nothing to offer.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"navassist/internal/domain"
)

// ErrInvalidK is returned when fewer than one result is requested.
var ErrInvalidK = errors.New("k must be at least 1")

// Index is the subset of a built vector index the retriever reads.
type Index interface {
	Len() int
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	Nearest(ctx context.Context, vec []float64, k int) ([]domain.SearchResult, error)
}

// Retrieve returns at most k documents by descending similarity to query,
// ties in corpus order. An empty index yields an empty result.
func Retrieve(ctx context.Context, ix Index, query string, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if ix.Len() == 0 {
		return nil, nil
	}
	vec, err := ix.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	res, err := ix.Nearest(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return res, nil
}

// NeedsFallback reports whether results carry no usable content: the set is
// empty or every document is blank after trimming. Similarity scores are not
// consulted, so a low-scoring but nonblank match never triggers the fallback.
func NeedsFallback(results []domain.SearchResult) bool {
	for _, r := range results {
		if strings.TrimSpace(r.Document.Content) != "" {
			return false
		}
	}
	return true
}

// Contents returns the document contents of results in rank order.
func Contents(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.Content
	}
	return out
}
