package prompt

import (
	"fmt"
	"strings"

	"citeweb/internal/models"
	"citeweb/internal/text"
)

const (
	DefaultCorpusBudget      = 20000
	DefaultStructuredBudget  = 2500
	DefaultStructuredEntries = 25

	SearchHeader     = "**Extracted Data from Search Results:**"
	StructuredHeader = "**Content Scraped from User-Provided URLs:**"
	NoDataMarker     = "No data available for this section."
)

// Budgets are word limits, each applied once to its content unit.
type Budgets struct {
	// Corpus bounds the search-derived section, header included.
	Corpus int
	// Structured bounds the structured-scrape section, header included.
	Structured int
	// StructuredEntries caps how many scraped pages are rendered at all.
	StructuredEntries int
}

func (b Budgets) withDefaults() Budgets {
	if b.Corpus <= 0 {
		b.Corpus = DefaultCorpusBudget
	}
	if b.Structured <= 0 {
		b.Structured = DefaultStructuredBudget
	}
	if b.StructuredEntries <= 0 {
		b.StructuredEntries = DefaultStructuredEntries
	}
	return b
}

// Context is the aggregated context handed to the model, one labeled
// section per channel.
type Context struct {
	Search     string
	Structured string
}

func (c Context) String() string {
	return c.Search + "\n\n" + c.Structured
}

// MergeStructured renders scraped pages that have content. Pages with nil
// content are skipped without a placeholder.
func MergeStructured(entries []models.StructuredPage, b Budgets) string {
	b = b.withDefaults()

	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Content == nil {
			continue
		}
		if len(blocks) == b.StructuredEntries {
			break
		}
		blocks = append(blocks, renderPage(e))
	}
	return strings.Join(blocks, "\n\n")
}

func renderPage(e models.StructuredPage) string {
	var title string
	if e.Content.Title != "" {
		title = "Title: " + e.Content.Title
	}

	headings := make([]string, 0, len(e.Content.Headings))
	for _, h := range e.Content.Headings {
		headings = append(headings, h.Tag+": "+h.Text)
	}

	return fmt.Sprintf("Source: %s\n\n%s\n\n%s\n\n%s",
		e.URL,
		title,
		strings.Join(headings, "\n"),
		strings.Join(e.Content.Paragraphs, " "),
	)
}

// BuildContext renders both channels. Records are numbered from 1 in input
// order so that "(Source N)" in the answer maps to records[N-1].
func BuildContext(records []models.ExtractedRecord, structuredBlock string, b Budgets) Context {
	b = b.withDefaults()

	var sb strings.Builder
	for i, r := range records {
		if r.Content == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "(Source %d) %s\n%s", i+1, r.SourceLink, r.Content)
	}

	return Context{
		Search:     section(SearchHeader, sb.String(), b.Corpus),
		Structured: section(StructuredHeader, strings.TrimSpace(structuredBlock), b.Structured),
	}
}

func section(header, body string, budget int) string {
	if strings.TrimSpace(body) == "" {
		body = NoDataMarker
	}
	return text.TruncateWords(header+"\n"+body, budget)
}
