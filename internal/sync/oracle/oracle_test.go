package oracle

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateCapsLongInput(t *testing.T) {
	s := strings.Repeat("a", 100)
	assert.Len(t, Truncate(s, 10), 10)
	assert.Equal(t, s, Truncate(s, 100))
	assert.Equal(t, s, Truncate(s, 1000))
	assert.Equal(t, s, Truncate(s, 0), "non-positive limit disables the cap")
}

func TestTruncateNeverSplitsARune(t *testing.T) {
	// "é" is two bytes; every odd cap lands mid-rune.
	s := strings.Repeat("é", 50)
	for limit := 1; limit < 20; limit++ {
		out := Truncate(s, limit)
		assert.True(t, utf8.ValidString(out), "limit %d produced invalid UTF-8", limit)
		assert.LessOrEqual(t, len(out), limit)
	}

	multi := "日本語のテキスト"
	out := Truncate(multi, 7)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "日本", out)
}
