// Package hasher turns rendered HTML into a stable page-identity digest.
// Two documents with the same visible text on the same URL hash the same;
// markup-only edits (scripts, styles, chrome, whitespace, letter case) do
// not change the digest.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strippedSelectors are subtrees that never carry assignment-relevant
// visible text.
var strippedSelectors = []string{
	"script", "style", "meta", "link", "noscript", "header", "footer", "nav",
}

// Hash returns the 256-bit hex digest of the URL-prefixed canonical visible
// text of html. Malformed HTML is parsed best-effort; Hash never fails.
func Hash(html, url string) string {
	text := VisibleText(html)
	sum := sha256.Sum256([]byte(url + "|" + text))
	return hex.EncodeToString(sum[:])
}

// VisibleText extracts the canonicalised visible text of an HTML document:
// chrome subtrees removed, whitespace collapsed to single spaces, lowercased.
func VisibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable input degrades to the raw bytes so the digest
		// still reflects content changes.
		return canonicalize(html)
	}
	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}
	var sb strings.Builder
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
		sb.WriteString(" ")
	})
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	return canonicalize(text)
}

func canonicalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Changed reports whether a page with digest curr should be treated as
// changed relative to the previous sync. An empty previous digest means the
// page is new and therefore changed.
func Changed(curr, prev string) bool {
	return prev == "" || curr != prev
}
