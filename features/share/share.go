package share

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is a shared result. Data is stored verbatim.
type Entry struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type Repository interface {
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Get(ctx context.Context, id string) ([]byte, error)
}
