package domain

import "context"

// Document is one row of the knowledge corpus. ID is the row position.
type Document struct {
	ID      int
	Content string
}

// SearchResult represents a matching document with a similarity score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation message.
type Turn struct {
	Role    Role
	Content string
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, docs []Document, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// WebSearcher runs a keyword search against an external engine and returns
// result locators (URLs).
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Generator produces a reply for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
