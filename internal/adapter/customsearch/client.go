package customsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"citeweb/internal/apperr"
	"citeweb/internal/models"
)

// maxPerRequest is the largest num the Custom Search JSON API accepts.
const maxPerRequest = 10

// Client queries the Google Custom Search JSON API.
type Client struct {
	svc      *customsearch.Service
	engineID string
}

func NewClient(ctx context.Context, apiKey, engineID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("customsearch service: %w", err)
	}
	return &Client{svc: svc, engineID: engineID}, nil
}

// Search returns at most limit results in provider ranking order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.CandidateSource, error) {
	if limit <= 0 || limit > maxPerRequest {
		limit = maxPerRequest
	}

	res, err := c.svc.Cse.List().
		Cx(c.engineID).
		Q(query).
		Num(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, upstreamError(err)
	}

	out := make([]models.CandidateSource, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil || item.Link == "" {
			continue
		}
		out = append(out, models.CandidateSource{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: strings.TrimSpace(item.Snippet),
		})
		if len(out) == limit {
			break
		}
	}

	slog.DebugContext(ctx, "search completed", "query", query, "results", len(out))
	return out, nil
}

func upstreamError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		detail := gErr.Message
		if detail == "" {
			detail = http.StatusText(gErr.Code)
		}
		return fmt.Errorf("%w: search provider returned %d: %s", apperr.ErrUpstream, gErr.Code, detail)
	}
	return fmt.Errorf("%w: search provider: %v", apperr.ErrUpstream, err)
}
