package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	answersKey = "stats:answers"
	modelsKey  = "stats:models"
)

// RedisRepo keeps running counters only. Queries and page content are not stored.
type RedisRepo struct {
	client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func (r *RedisRepo) Record(ctx context.Context, a Answer) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, answersKey, "answered", 1)
		pipe.HIncrBy(ctx, answersKey, "sources", int64(a.Sources))
		pipe.HIncrBy(ctx, answersKey, "fallbacks", int64(a.Fallbacks))
		pipe.HIncrBy(ctx, answersKey, "latency_ms", a.LatencyMs)
		if a.Model != "" {
			pipe.HIncrBy(ctx, modelsKey, a.Model, 1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record answer stats: %w", err)
	}
	return nil
}

func (r *RedisRepo) Summary(ctx context.Context) (*Summary, error) {
	counters, err := r.client.HGetAll(ctx, answersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read answer stats: %w", err)
	}
	models, err := r.client.HGetAll(ctx, modelsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read model stats: %w", err)
	}

	s := &Summary{
		Answered:  parseCount(counters["answered"]),
		Sources:   parseCount(counters["sources"]),
		Fallbacks: parseCount(counters["fallbacks"]),
		Models:    make(map[string]int64, len(models)),
	}
	if s.Answered > 0 {
		s.AvgLatencyMs = parseCount(counters["latency_ms"]) / s.Answered
	}
	for model, n := range models {
		s.Models[model] = parseCount(n)
	}
	return s, nil
}

func parseCount(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
