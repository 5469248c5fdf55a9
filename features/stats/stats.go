package stats

import "context"

// Answer is one completed chat request as seen by the stats aggregator.
type Answer struct {
	Model     string
	Sources   int
	Fallbacks int
	LatencyMs int64
}

type Summary struct {
	Answered     int64            `json:"answered"`
	Sources      int64            `json:"sources"`
	Fallbacks    int64            `json:"fallbacks"`
	AvgLatencyMs int64            `json:"avg_latency_ms"`
	Models       map[string]int64 `json:"models"`
}

type Repository interface {
	Record(ctx context.Context, a Answer) error
	Summary(ctx context.Context) (*Summary, error)
}
