package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"init", "search", "load", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmd_Version(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"--version"})

	var out strings.Builder
	root.SetOut(&out)

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "casefind version")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short text", snippet("short   text", 160))

	long := strings.Repeat("word ", 100)
	s := snippet(long, 40)
	assert.Len(t, s, 43)
	assert.True(t, strings.HasSuffix(s, "..."))
}
