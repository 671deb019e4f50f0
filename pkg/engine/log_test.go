package engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcde...", truncateString("abcdefgh", 5))

	// "🎄" is four bytes; a byte cut at 6 lands inside the second tree.
	got := truncateString("🎄🎄🎄", 6)
	assert.True(t, utf8.ValidString(got), "invalid UTF-8: %q", got)
	assert.Equal(t, "🎄...", got)

	long := strings.Repeat("é", textMaxLen)
	got = truncateString(long, textMaxLen)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), textMaxLen+len("..."))
}
