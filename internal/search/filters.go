package search

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/nyayatech/casefind/internal/store"
)

// residualMinLen is the shortest residual text worth a fulltext match.
// Anything shorter is connector debris left over after extraction.
const residualMinLen = 5

var (
	// Citations are extracted first so their embedded year is not
	// mistaken for a year filter.
	citationRe = regexp.MustCompile(`(?i)(AIR\s+\d{4}\s+[A-Za-z.]+\s+\d+|\(\d{4}\)\s+\d+\s+[A-Za-z.]+\s+\d+)`)

	yearRangeRe = regexp.MustCompile(`(?i)\b(?:between\s+|from\s+)?(1[89]\d{2}|20\d{2})\s*(?:-|to|and)\s*(1[89]\d{2}|20\d{2})\b`)
	yearFromRe  = regexp.MustCompile(`(?i)\b(?:after|since|from)\s+(1[89]\d{2}|20\d{2})\b`)
	yearToRe    = regexp.MustCompile(`(?i)\b(?:before|until|till)\s+(1[89]\d{2}|20\d{2})\b`)
	yearExactRe = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

	supremeCourtRe = regexp.MustCompile(`(?i)\bsupreme court(?:\s+of\s+india)?\b`)
	highCourtRe    = regexp.MustCompile(`(?i)\b((?:[A-Za-z]+\s+){1,2})high court\b`)
	bareHighRe     = regexp.MustCompile(`(?i)\bhigh court\b`)

	jurisdictionRe = regexp.MustCompile(`(?i)\b(civil|criminal|constitutional|tax|company|labour|service|family)\s+(?:law|matters?|jurisdiction|cases?)\b`)

	benchRe = regexp.MustCompile(`(?i)\b(constitution bench|division bench|full bench|single judge)\b`)
)

// caseTypeRule maps a query pattern onto a canonical case type. Rules are
// ordered: more specific phrases first, so "criminal appeal" wins over a
// later bare "appeal".
type caseTypeRule struct {
	re       *regexp.Regexp
	caseType string
}

var caseTypeRules = []caseTypeRule{
	{regexp.MustCompile(`(?i)\b(?:public interest litigation|PIL)s?\b`), "public interest litigation"},
	{regexp.MustCompile(`(?i)\b(?:special leave petition|SLP)s?\b`), "special leave petition"},
	{regexp.MustCompile(`(?i)\bhabeas corpus\b`), "habeas corpus"},
	{regexp.MustCompile(`(?i)\bwrit petitions?\b`), "writ petition"},
	{regexp.MustCompile(`(?i)\bcriminal appeals?\b`), "criminal appeal"},
	{regexp.MustCompile(`(?i)\bcivil appeals?\b`), "civil appeal"},
	{regexp.MustCompile(`(?i)\breview petitions?\b`), "review petition"},
	{regexp.MustCompile(`(?i)\bcurative petitions?\b`), "curative petition"},
	{regexp.MustCompile(`(?i)\b(?:anticipatory )?bail\b`), "bail"},
}

// FilterExtractor derives structured filters from a natural language
// query. Extraction is pattern-based and first-match-wins per category;
// matched spans are removed so the residual text can serve as a fulltext
// filter without re-matching its own structure.
type FilterExtractor struct {
	logger *slog.Logger
}

// NewFilterExtractor creates a query filter extractor.
func NewFilterExtractor() *FilterExtractor {
	return &FilterExtractor{
		logger: slog.Default().With("component", "filter-extractor"),
	}
}

// Extract parses the query into structured filters. The returned filters
// never include WorkspaceID; the orchestrator scopes that.
func (e *FilterExtractor) Extract(query string) store.Filters {
	var f store.Filters
	text := query

	text = e.extractCitation(text, &f)
	text = e.extractYears(text, &f)
	text = e.extractCourt(text, &f)
	text = e.extractCaseType(text, &f)
	text = e.extractJurisdiction(text, &f)
	text = e.extractBench(text, &f)

	residual := collapseSpaces(text)
	if len(residual) > residualMinLen {
		f.Fulltext = residual
	}

	e.logger.Debug("extracted filters",
		"court", f.Court,
		"year", f.Year,
		"year_from", f.YearFrom,
		"year_to", f.YearTo,
		"case_type", f.CaseType,
		"jurisdiction", f.Jurisdiction,
		"citation", f.Citation,
		"fulltext", f.Fulltext)
	return f
}

func (e *FilterExtractor) extractCitation(text string, f *store.Filters) string {
	if m := citationRe.FindString(text); m != "" {
		f.Citation = collapseSpaces(m)
		text = strings.Replace(text, m, " ", 1)
	}
	return text
}

func (e *FilterExtractor) extractYears(text string, f *store.Filters) string {
	if m := yearRangeRe.FindStringSubmatch(text); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if from > to {
			from, to = to, from
		}
		f.YearFrom, f.YearTo = from, to
		return strings.Replace(text, m[0], " ", 1)
	}

	matched := false
	if m := yearFromRe.FindStringSubmatch(text); m != nil {
		f.YearFrom, _ = strconv.Atoi(m[1])
		text = strings.Replace(text, m[0], " ", 1)
		matched = true
	}
	if m := yearToRe.FindStringSubmatch(text); m != nil {
		f.YearTo, _ = strconv.Atoi(m[1])
		text = strings.Replace(text, m[0], " ", 1)
		matched = true
	}
	if matched {
		return text
	}

	if m := yearExactRe.FindStringSubmatch(text); m != nil {
		f.Year, _ = strconv.Atoi(m[1])
		text = strings.Replace(text, m[0], " ", 1)
	}
	return text
}

func (e *FilterExtractor) extractCourt(text string, f *store.Filters) string {
	if m := supremeCourtRe.FindString(text); m != "" {
		f.Court = "Supreme Court of India"
		return strings.Replace(text, m, " ", 1)
	}
	if m := highCourtRe.FindStringSubmatch(text); m != nil {
		// Connectors like "the" or "in" sneak into the name capture.
		words := strings.Fields(m[1])
		for len(words) > 0 && isConnector(words[0]) {
			words = words[1:]
		}
		if len(words) > 0 {
			f.Court = titleCase(strings.Join(words, " ")) + " High Court"
			return strings.Replace(text, m[0], " ", 1)
		}
	}
	if m := bareHighRe.FindString(text); m != "" {
		f.Court = "High Court"
		return strings.Replace(text, m, " ", 1)
	}
	return text
}

func (e *FilterExtractor) extractCaseType(text string, f *store.Filters) string {
	for _, rule := range caseTypeRules {
		if m := rule.re.FindString(text); m != "" {
			f.CaseType = rule.caseType
			return strings.Replace(text, m, " ", 1)
		}
	}
	return text
}

func (e *FilterExtractor) extractJurisdiction(text string, f *store.Filters) string {
	// Runs after case types so "criminal appeal" never degrades into a
	// bare "criminal" jurisdiction.
	if m := jurisdictionRe.FindStringSubmatch(text); m != nil {
		f.Jurisdiction = strings.ToLower(m[1])
		return strings.Replace(text, m[0], " ", 1)
	}
	return text
}

func (e *FilterExtractor) extractBench(text string, f *store.Filters) string {
	if m := benchRe.FindString(text); m != "" {
		f.Bench = strings.ToLower(collapseSpaces(m))
		return strings.Replace(text, m, " ", 1)
	}
	return text
}

// isConnector reports whether a would-be court name is really a stray
// connector word ("the", "in", "by", "of", "from").
func isConnector(name string) bool {
	switch strings.ToLower(name) {
	case "the", "in", "by", "of", "from", "a", "an", "any":
		return true
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}
