package rerank

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPreview_TruncatesLongText(t *testing.T) {
	d := Document{Title: "Long case", Text: strings.Repeat("precedent ", 100)}
	assert.Len(t, preview(d), maxPreviewLen)
}

func TestPreview_RuneAlignedCut(t *testing.T) {
	// Multi-byte text must be cut on a rune boundary so providers never
	// receive invalid UTF-8; the cap counts characters, not bytes.
	d := Document{Title: "अनुच्छेद 21", Text: strings.Repeat("स्वतंत्रता ", 100)}
	p := preview(d)

	assert.True(t, utf8.ValidString(p))
	assert.Equal(t, maxPreviewLen, utf8.RuneCountInString(p))
}

func TestIndexedPreviews(t *testing.T) {
	out := indexedPreviews([]Document{
		{Title: "A", Text: "one"},
		{Title: "B", Text: "two"},
	})
	assert.Equal(t, "[0] A. one\n[1] B. two\n", out)
}
