package chat

import (
	"context"

	"citeweb/internal/models"
	"citeweb/internal/retrieval"
	"citeweb/internal/settings"
)

// Request is the POST /chat body.
type Request struct {
	Query            string                  `json:"query"`
	URL              []string                `json:"url"`
	StructuredScrape []models.StructuredPage `json:"structuredScrape"`
	// Model overrides the configured model for this request.
	Model string `json:"model,omitempty"`
}

type SourceResolver interface {
	Resolve(ctx context.Context, query string, urls []string, topK int) ([]models.CandidateSource, error)
}

type Extractor interface {
	Extract(ctx context.Context, sources []models.CandidateSource, opts retrieval.Options) []models.ExtractedRecord
}

type Completer interface {
	Complete(ctx context.Context, turns []models.ChatTurn, model string) (string, error)
}

type SettingsProvider interface {
	Get(ctx context.Context) (*settings.Settings, error)
	Defaults() settings.Settings
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// AnsweredEvent is published on config.TopicChatAnswered.
type AnsweredEvent struct {
	CorrelationID string   `json:"correlation_id"`
	Query         string   `json:"query"`
	Model         string   `json:"model"`
	Links         []string `json:"links"`
	Fallbacks     int      `json:"fallbacks"`
	LatencyMs     int64    `json:"latency_ms"`
}
