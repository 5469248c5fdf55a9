package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"citeweb/internal/apperr"
	"citeweb/internal/models"
)

const (
	PlaceholderTitle   = "chat url"
	PlaceholderSnippet = "user's url"

	DefaultTopK = 5
	MaxTopK     = 10
)

var urlRe = regexp.MustCompile(`https?://[^\s/$.?#][^\s]*`)

// Provider is a web search backend.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]models.CandidateSource, error)
}

type Resolver struct {
	provider Provider
}

func NewResolver(p Provider) *Resolver {
	return &Resolver{provider: p}
}

// Resolve turns explicit URLs, or failing that a search for query, into an
// ordered list of candidate sources.
func (r *Resolver) Resolve(ctx context.Context, query string, urls []string, topK int) ([]models.CandidateSource, error) {
	explicit := cleanURLs(urls)
	if len(explicit) > 0 {
		sources := make([]models.CandidateSource, len(explicit))
		for i, u := range explicit {
			sources[i] = models.CandidateSource{
				Title:   PlaceholderTitle,
				Link:    u,
				Snippet: PlaceholderSnippet,
			}
		}
		return sources, nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required when no urls are given", apperr.ErrValidation)
	}
	if r.provider == nil {
		return nil, fmt.Errorf("%w: no search provider configured", apperr.ErrInternal)
	}

	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	results, err := r.provider.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	if len(results) > topK {
		results = results[:topK]
	}

	slog.InfoContext(ctx, "sources resolved from search", "query", query, "count", len(results))
	return results, nil
}

// ExtractURLs returns the http(s) URLs found in free text, in order of
// appearance, without duplicates.
func ExtractURLs(s string) []string {
	matches := urlRe.FindAllString(s, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)\"'")
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
