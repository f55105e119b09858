package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIgnoresMarkupOnlyEdits(t *testing.T) {
	base := `<html><head><title>Week 3</title></head><body><h1>Homework 3</h1><p>Due Friday at 5pm.</p></body></html>`
	variants := []string{
		`<html><head><script>track();</script><style>p{color:red}</style></head><body><h1>Homework 3</h1><p>Due Friday at 5pm.</p></body></html>`,
		`<html><body><nav><a href="/">Home</a></nav><h1>Homework  3</h1>
			<p>Due   Friday at 5pm.</p><footer>Contact us</footer></body></html>`,
		`<html><head><meta charset="utf-8"><link rel="stylesheet" href="a.css"></head><body><h1>HOMEWORK 3</h1><p>due friday AT 5pm.</p></body></html>`,
	}
	url := "https://cs101.example.edu/week3"
	want := Hash(base, url)
	for _, v := range variants {
		assert.Equal(t, want, Hash(v, url))
	}
}

func TestHashDiffersOnVisibleTextChange(t *testing.T) {
	url := "https://cs101.example.edu/week3"
	a := Hash(`<body><p>Due Friday at 5pm.</p></body>`, url)
	b := Hash(`<body><p>Due Saturday at 5pm.</p></body>`, url)
	assert.NotEqual(t, a, b)
}

func TestHashMixesInURL(t *testing.T) {
	html := `<body><p>Due Friday at 5pm.</p></body>`
	a := Hash(html, "https://cs101.example.edu/week3")
	b := Hash(html, "https://cs101.example.edu/week4")
	assert.NotEqual(t, a, b)
}

func TestHashEmptyAndMalformed(t *testing.T) {
	url := "https://cs101.example.edu/empty"
	empty := Hash("", url)
	require.Len(t, empty, 64)
	assert.Equal(t, empty, Hash("<html><body></body></html>", url))

	// Malformed input must still hash without error.
	assert.Len(t, Hash("<div><p>unclosed", url), 64)
}

func TestChanged(t *testing.T) {
	assert.True(t, Changed("abc", ""))
	assert.True(t, Changed("abc", "def"))
	assert.False(t, Changed("abc", "abc"))
}
