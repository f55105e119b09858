// Package oracle defines the structured-output capabilities the sync
// pipeline leans on: link analysis during the crawl, assignment extraction
// per page, and due-date resolution per assignment. Each is an interface so
// tests can substitute deterministic fakes.
package oracle

import (
	"context"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Input caps keep oracle prompts bounded.
const (
	LinkContextLimit    = 3000
	ExtractContextLimit = 8000
	PerPageLimit        = 5000
	TotalLimit          = 30000
)

// LinkAnalysis is the link oracle's verdict on one page.
type LinkAnalysis struct {
	RelevantLinks       []string `json:"relevant_links"`
	AssignmentDataFound bool     `json:"assignment_found"`
	Reason              string   `json:"reason"`
}

// LinkOracle finds outbound links likely to lead to assignment content and
// flags pages that carry assignment data themselves. Raw hrefs are returned
// as found; the crawler resolves them.
type LinkOracle interface {
	Analyze(ctx context.Context, pageText, currentURL string) (LinkAnalysis, error)
}

// ExtractedAssignment is one assignment the extraction oracle found on a
// page. Repeated marks it as a match against the prior canonical list.
type ExtractedAssignment struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Repeated    bool   `json:"repeated"`
}

type ExtractionOracle interface {
	Extract(ctx context.Context, pageText, priorPretty string) ([]ExtractedAssignment, error)
}

// ResolvedDueDate is the resolver oracle's single answer for one
// assignment. A nil result from Resolve means no date could be determined.
type ResolvedDueDate struct {
	Date        string   `json:"date"`
	DateCertain bool     `json:"date_certain"`
	TimeCertain bool     `json:"time_certain"`
	Confidence  float64  `json:"confidence"`
	SourceURLs  []string `json:"source_urls"`
	Reasoning   string   `json:"reasoning"`
}

type ResolverOracle interface {
	Resolve(ctx context.Context, title, description, sourceText string) (*ResolvedDueDate, error)
}

// Truncate caps s at limit bytes, backing off to the nearest rune boundary
// so the cut never produces invalid UTF-8.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Markdown converts rendered HTML to the compact text representation fed to
// the oracles. Conversion failures fall back to the raw HTML so an ugly
// prompt still beats an empty one.
func Markdown(html string) string {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return html
	}
	return out
}
