package retrieval

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"citeweb/internal/extract"
	"citeweb/internal/fetch"
	"citeweb/internal/metrics"
	"citeweb/internal/models"
	"citeweb/internal/text"
)

const (
	DefaultPageWordBudget = 700
	DefaultConcurrency    = 8
	DefaultFetchTimeout   = 20 * time.Second
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

type Options struct {
	PageWordBudget int
	Concurrency    int
	FetchTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.PageWordBudget <= 0 {
		o.PageWordBudget = DefaultPageWordBudget
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	return o
}

// Service turns candidate sources into extracted records.
type Service struct {
	fetcher Fetcher
}

func NewService(f Fetcher) *Service {
	return &Service{fetcher: f}
}

// Extract returns exactly one record per source, in source order. Sources
// that cannot be fetched or parsed get a fallback record; Extract itself
// never fails.
func (s *Service) Extract(ctx context.Context, sources []models.CandidateSource, opts Options) []models.ExtractedRecord {
	opts = opts.withDefaults()
	records := make([]models.ExtractedRecord, len(sources))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for i, src := range sources {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, opts.FetchTimeout)
			defer cancel()

			rec, err := s.ExtractOne(fetchCtx, src, opts.PageWordBudget)
			if err != nil {
				slog.WarnContext(ctx, "source fetch failed, using fallback",
					"index", i,
					"url", src.Link,
					"error", err,
				)
				metrics.SourceFetches.WithLabelValues(metrics.OutcomeFallback).Inc()
				records[i] = Fallback(src, opts.PageWordBudget)
				return nil
			}
			metrics.SourceFetches.WithLabelValues(metrics.OutcomeOK).Inc()
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// ExtractOne fetches and parses a single source.
func (s *Service) ExtractOne(ctx context.Context, src models.CandidateSource, wordBudget int) (models.ExtractedRecord, error) {
	if wordBudget <= 0 {
		wordBudget = DefaultPageWordBudget
	}

	page, err := s.fetcher.Fetch(ctx, src.Link)
	if err != nil {
		return models.ExtractedRecord{}, err
	}

	fields, err := extract.Parse(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		return models.ExtractedRecord{}, err
	}

	body := append([]string{fields.Title}, fields.Paragraphs...)
	return models.ExtractedRecord{
		Title:      fields.Title,
		Heading:    fields.Heading,
		Summary:    fields.Summary,
		Author:     fields.Author,
		Content:    text.TruncateWords(text.Join(body...), wordBudget),
		SourceLink: src.Link,
	}, nil
}

// Fallback builds the record used when a source could not be processed.
func Fallback(src models.CandidateSource, wordBudget int) models.ExtractedRecord {
	if wordBudget <= 0 {
		wordBudget = DefaultPageWordBudget
	}
	snippet := text.TruncateWords(text.Normalize(src.Snippet), wordBudget)
	return models.ExtractedRecord{
		Title:      src.Title,
		Heading:    src.Title,
		Summary:    snippet,
		Author:     extract.UnknownAuthor,
		Content:    snippet,
		SourceLink: src.Link,
		Fallback:   true,
	}
}
