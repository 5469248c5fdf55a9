package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"citeweb/features/chat"
	"citeweb/features/stats"
	"citeweb/internal/middleware"
)

type StatsRecorder interface {
	Record(ctx context.Context, a stats.Answer) error
}

// AnsweredConsumer folds chat.answered events into the stats counters.
type AnsweredConsumer struct {
	recorder StatsRecorder
}

func NewAnsweredConsumer(r StatsRecorder) *AnsweredConsumer {
	return &AnsweredConsumer{recorder: r}
}

func (c *AnsweredConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var ev chat.AnsweredEvent
	err := json.Unmarshal(m.Body, &ev)

	correlationID := ev.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid message format", "error", err)
		return nil // Don't retry invalid messages
	}

	if err := c.recorder.Record(ctx, stats.Answer{
		Model:     ev.Model,
		Sources:   len(ev.Links),
		Fallbacks: ev.Fallbacks,
		LatencyMs: ev.LatencyMs,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to record answer stats", "error", err)
		return err
	}

	slog.DebugContext(ctx, "recorded answer stats", "model", ev.Model, "sources", len(ev.Links))
	return nil
}
