// Package vector provides the dense similarity source for hybrid search.
// The index is namespace-scoped so one process can serve several workspaces.
package vector

import (
	"context"
)

// Hit is a single similarity match.
type Hit struct {
	// ID identifies the document across search sources.
	ID string
	// Score is the similarity score (0-1, higher is closer).
	Score float64
	// Title and Text are display passthroughs captured at index time.
	Title string
	Text  string
	// Metadata carries structured fields captured at index time.
	Metadata map[string]string
}

// Document is the unit of indexing.
type Document struct {
	ID       string
	Title    string
	Text     string
	Metadata map[string]string
}

// Client is the dense vector source consumed by the search orchestrator.
// Implementations own their embedding step; callers pass raw query text.
type Client interface {
	// SimilaritySearch embeds the query and returns up to topK hits from
	// the namespace whose score meets the threshold.
	SimilaritySearch(ctx context.Context, namespace, query string, threshold float64, topK int) ([]*Hit, error)

	// Close releases resources.
	Close() error
}

// Embedder turns text into dense vectors.
type Embedder interface {
	// EmbedText generates an embedding for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for a batch of texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
