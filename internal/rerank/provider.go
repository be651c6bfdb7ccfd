// Package rerank scores search candidates against a query using hosted
// relevance providers. The package is deliberately fault-tolerant: a
// provider that is down, misconfigured, or returns garbage degrades to a
// neutral score instead of failing the search.
package rerank

import (
	"context"
	"fmt"
	"strings"
)

// NeutralScore is the relevance assigned when no provider score is
// available. It neither promotes nor demotes a candidate.
const NeutralScore = 0.5

// maxPreviewLen caps the document text sent to prompt-based providers.
const maxPreviewLen = 500

// Document is a candidate to score.
type Document struct {
	Title string
	Text  string
}

// Provider scores documents against a query. Implementations return one
// score per document, in input order, each within [0, 1].
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// BatchSize is the maximum number of documents per request.
	BatchSize() int

	// Score returns a relevance score per document, in input order.
	Score(ctx context.Context, query string, docs []Document) ([]float64, error)
}

// preview renders a document for prompt-based providers, truncated so a
// batch stays within a sane prompt size. The cut is rune-aligned so the
// prompt never carries a split UTF-8 sequence.
func preview(d Document) string {
	text := strings.TrimSpace(d.Title + ". " + d.Text)
	if len(text) > maxPreviewLen {
		if runes := []rune(text); len(runes) > maxPreviewLen {
			text = string(runes[:maxPreviewLen])
		}
	}
	return text
}

// indexedPreviews renders a numbered document list for prompts.
func indexedPreviews(docs []Document) string {
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s\n", i, preview(d))
	}
	return b.String()
}
