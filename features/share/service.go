package share

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"citeweb/internal/apperr"
)

const DefaultTTL = 168 * time.Hour

type Service struct {
	repo Repository
	ttl  time.Duration
}

func NewService(repo Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, ttl: ttl}
}

// Create stores data under a fresh id and returns the id.
func (s *Service) Create(ctx context.Context, data json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("%w: No data provided", apperr.ErrValidation)
	}

	id := uuid.New().String()
	if err := s.repo.Save(ctx, id, trimmed, s.ttl); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "share created", "id", id, "bytes", len(trimmed), "ttl", s.ttl)
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: share %s", apperr.ErrNotFound, id)
	}
	data, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Entry{ID: id, Data: data}, nil
}
