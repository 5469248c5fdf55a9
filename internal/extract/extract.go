package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"citeweb/internal/models"
	"citeweb/internal/text"
)

const UnknownAuthor = "Unknown Author"

// Fields are the values pulled out of one HTML document.
type Fields struct {
	Title      string
	Heading    string
	Summary    string
	Author     string
	Paragraphs []string
}

var (
	summarySelectors = []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
	}
	authorMetaSelectors = []string{
		`meta[name="author"]`,
		`meta[property="article:author"]`,
	}
	authorElementSelectors = []string{
		"span.author",
		".author",
		`[rel="author"]`,
		`[itemprop="author"]`,
	}
)

// Parse decodes body to UTF-8 using the Content-Type header and in-document
// hints, then extracts its fields.
func Parse(body io.Reader, contentType string) (*Fields, error) {
	doc, err := Document(body, contentType)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc), nil
}

func ParseHTML(html string) (*Fields, error) {
	return Parse(strings.NewReader(html), "text/html; charset=utf-8")
}

// Document builds a goquery document with script and style content removed.
func Document(body io.Reader, contentType string) (*goquery.Document, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		decoded = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script,noscript,style,template").Remove()
	return doc, nil
}

func FromDocument(doc *goquery.Document) *Fields {
	f := &Fields{
		Title: text.Normalize(doc.Find("title").First().Text()),
	}

	f.Heading = text.Normalize(doc.Find("h1").First().Text())
	if f.Heading == "" {
		f.Heading = f.Title
	}

	f.Summary = firstAttr(doc, summarySelectors, "content")
	f.Author = authorOf(doc)

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if p := text.Normalize(s.Text()); p != "" {
			f.Paragraphs = append(f.Paragraphs, p)
		}
	})
	return f
}

// Structure returns the page as title, ordered h1-h6 headings and paragraphs.
func Structure(doc *goquery.Document) *models.PageContent {
	pc := &models.PageContent{
		Title:      text.Normalize(doc.Find("title").First().Text()),
		Headings:   []models.Heading{},
		Paragraphs: []string{},
	}
	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		if h := text.Normalize(s.Text()); h != "" {
			pc.Headings = append(pc.Headings, models.Heading{Text: h, Tag: goquery.NodeName(s)})
		}
	})
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if p := text.Normalize(s.Text()); p != "" {
			pc.Paragraphs = append(pc.Paragraphs, p)
		}
	})
	return pc
}

func authorOf(doc *goquery.Document) string {
	if a := firstAttr(doc, authorMetaSelectors, "content"); a != "" {
		return a
	}
	for _, sel := range authorElementSelectors {
		if a := text.Normalize(doc.Find(sel).First().Text()); a != "" {
			return a
		}
	}
	return UnknownAuthor
}

func firstAttr(doc *goquery.Document, selectors []string, attr string) string {
	for _, sel := range selectors {
		if v := text.Normalize(doc.Find(sel).First().AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}
