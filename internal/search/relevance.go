package search

import (
	"strings"
	"unicode"

	"github.com/nyayatech/casefind/internal/store"
)

// Metadata relevance scoring. A record that came back from the metadata
// store already satisfied the structured filters, so it starts at a
// neutral-positive base; token overlap with the query and agreement on
// the extracted filters raise it from there.
const (
	relevanceBase      = 0.5
	overlapWeight      = 0.5
	courtBoost         = 0.15
	yearBoost          = 0.15
	caseTypeBoost      = 0.10
	citationBoost      = 0.20
	normalizedTitleLen = 50
)

// metadataRelevance scores how well a record matches the query and its
// extracted filters, within [0, 1].
func metadataRelevance(queryTokens []string, rec *store.CaseRecord, f store.Filters) float64 {
	score := relevanceBase + overlapWeight*tokenOverlap(queryTokens, recordTokens(rec))

	if f.Court != "" && containsFold(rec.Court, f.Court) {
		score += courtBoost
	}
	if f.Year != 0 && rec.Year == f.Year {
		score += yearBoost
	}
	if f.CaseType != "" && strings.EqualFold(rec.CaseType, f.CaseType) {
		score += caseTypeBoost
	}
	if f.Citation != "" && containsFold(rec.Citation, f.Citation) {
		score += citationBoost
	}

	if score > 1 {
		score = 1
	}
	return score
}

// tokenOverlap is the fraction of query tokens present in the record.
func tokenOverlap(queryTokens []string, recTokens map[string]bool) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range queryTokens {
		if recTokens[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// recordTokens collects the searchable tokens of a record.
func recordTokens(rec *store.CaseRecord) map[string]bool {
	parts := []string{rec.Title, rec.Court, rec.CaseType, strings.Join(rec.Keywords, " ")}
	tokens := make(map[string]bool)
	for _, tok := range tokenize(strings.Join(parts, " ")) {
		tokens[tok] = true
	}
	return tokens
}

// tokenize lowercases, strips punctuation, and drops short tokens.
// Two-letter fragments ("v", "vs", "of") carry no signal in case titles.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// normalizeTitle reduces a title to a comparison key for the diversity
// pass: lowercase, punctuation stripped, whitespace collapsed, truncated
// so trailing citation noise does not defeat duplicate detection.
func normalizeTitle(title string) string {
	norm := strings.Join(tokenize(title), " ")
	if runes := []rune(norm); len(runes) > normalizedTitleLen {
		norm = string(runes[:normalizedTitleLen])
	}
	return norm
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
