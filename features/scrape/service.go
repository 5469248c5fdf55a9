package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"citeweb/internal/apperr"
	"citeweb/internal/extract"
	"citeweb/internal/fetch"
	"citeweb/internal/metrics"
	"citeweb/internal/models"
)

const (
	// FailureMessage is reported for every URL that could not be captured.
	FailureMessage = "Failed to scrape this URL"

	DefaultTimeout     = 60 * time.Second
	DefaultConcurrency = 8
	MaxURLs            = 25
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

type Service struct {
	fetcher     Fetcher
	timeout     time.Duration
	concurrency int
}

func NewService(f Fetcher, timeout time.Duration, concurrency int) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{fetcher: f, timeout: timeout, concurrency: concurrency}
}

// Scrape returns one StructuredPage per URL, in input order. Failed pages
// have nil Content.
func (s *Service) Scrape(ctx context.Context, urls []string) ([]models.StructuredPage, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: urls must not be empty", apperr.ErrValidation)
	}
	if len(urls) > MaxURLs {
		return nil, fmt.Errorf("%w: at most %d urls per request", apperr.ErrValidation, MaxURLs)
	}

	pages := make([]models.StructuredPage, len(urls))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, u := range urls {
		u = strings.TrimSpace(u)
		g.Go(func() error {
			content, err := s.scrapeOne(ctx, u)
			if err != nil {
				slog.WarnContext(ctx, "scrape failed", "index", i, "url", u, "error", err)
				metrics.ScrapedPages.WithLabelValues(metrics.OutcomeFallback).Inc()
				pages[i] = models.StructuredPage{URL: u, Error: FailureMessage}
				return nil
			}
			metrics.ScrapedPages.WithLabelValues(metrics.OutcomeOK).Inc()
			pages[i] = models.StructuredPage{URL: u, Content: content}
			return nil
		})
	}
	_ = g.Wait()

	return pages, nil
}

func (s *Service) scrapeOne(ctx context.Context, url string) (*models.PageContent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := extract.Document(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrSourceFetch, err)
	}
	return extract.Structure(doc), nil
}
