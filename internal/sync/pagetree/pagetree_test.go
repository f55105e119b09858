package pagetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Tree {
	return &Tree{Root: &Node{
		URL:         "https://site/",
		ContentHash: "h-root",
		Children: []*Node{
			{
				URL:            "https://site/a",
				ContentHash:    "h-a",
				PreviousHash:   "h-a-old",
				ContentChanged: true,
				Children: []*Node{
					{URL: "https://site/a/1", ContentHash: "h-a1", PreviousHash: "h-a1", ContentChanged: false},
				},
			},
			{URL: "https://site/b", ContentChanged: true, Error: "timeout", AssignmentDataFound: false},
			{URL: "https://site/c", ContentHash: "h-c", ContentChanged: true, AssignmentDataFound: true},
		},
	}}
}

func TestWalkOrder(t *testing.T) {
	var urls []string
	sampleTree().Walk(func(n *Node) bool {
		urls = append(urls, n.URL)
		return true
	})
	assert.Equal(t, []string{
		"https://site/",
		"https://site/a",
		"https://site/a/1",
		"https://site/b",
		"https://site/c",
	}, urls)
}

func TestHashIndexSkipsFailedNodes(t *testing.T) {
	idx := sampleTree().HashIndex()
	assert.Equal(t, "h-a", idx["https://site/a"])
	_, ok := idx["https://site/b"]
	assert.False(t, ok, "node without a hash should not be indexed")
	assert.Len(t, idx, 4)
}

func TestChangedOrder(t *testing.T) {
	changed := sampleTree().Changed()
	require.Len(t, changed, 3)
	assert.Equal(t, "https://site/a", changed[0].URL)
	assert.Equal(t, "https://site/b", changed[1].URL)
	assert.Equal(t, "https://site/c", changed[2].URL)
}

func TestComputeStats(t *testing.T) {
	s := sampleTree().ComputeStats()
	assert.Equal(t, 5, s.PagesTotal)
	// root and /c have no previous hash so count as new
	assert.Equal(t, 2, s.PagesNew)
	assert.Equal(t, 2, s.PagesChanged)
	assert.Equal(t, 1, s.PagesUnchanged)
	assert.Equal(t, 1, s.PagesFailed)
	assert.Equal(t, 1, s.PagesWithAssignments)
}

func TestParseRoundTrip(t *testing.T) {
	raw, err := sampleTree().Marshal()
	require.NoError(t, err)
	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, sampleTree(), parsed)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
