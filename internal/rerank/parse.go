package rerank

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	bracketedArrayRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	numberRe         = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// parseScores extracts n relevance scores from a model response.
// Models are asked for strict JSON but drift: markdown fences, prose
// around the array, or an object wrapper all show up in practice, so
// parsing tries progressively looser strategies. A structured array is
// accepted only when its length matches n exactly; otherwise numeric
// substrings are taken in order of appearance. When fewer than n numbers
// exist anywhere in the text the response is rejected (nil) so the
// caller degrades to neutral scores.
func parseScores(raw string, n int) []float64 {
	text := stripFences(raw)

	if scores := parseJSONScores(text); scores != nil && len(scores) == n {
		return clampScores(scores)
	}
	if match := bracketedArrayRe.FindString(text); match != "" {
		if scores := parseJSONScores(match); scores != nil && len(scores) == n {
			return clampScores(scores)
		}
	}

	// Last resort: numeric substrings in order of appearance.
	matches := numberRe.FindAllString(text, n)
	if len(matches) < n {
		return nil
	}
	scores := make([]float64, 0, n)
	for _, m := range matches {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		scores = append(scores, f)
	}
	if len(scores) != n {
		return nil
	}
	return clampScores(scores)
}

// parseJSONScores accepts either a bare array or a {"scores": [...]} object.
func parseJSONScores(text string) []float64 {
	var arr []float64
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return arr
	}

	var obj struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Scores != nil {
		return obj.Scores
	}
	return nil
}

// clampScores clamps each score into [0, 1].
func clampScores(scores []float64) []float64 {
	out := make([]float64, len(scores))
	for i, v := range scores {
		out[i] = clamp01(v)
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// neutralScores returns n neutral scores.
func neutralScores(n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = NeutralScore
	}
	return scores
}
