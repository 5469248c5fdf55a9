package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"citeweb/internal/apperr"
	"citeweb/internal/config"
	"citeweb/internal/metrics"
	"citeweb/internal/middleware"
	"citeweb/internal/models"
	"citeweb/internal/prompt"
	"citeweb/internal/retrieval"
	"citeweb/internal/search"
	"citeweb/internal/settings"
)

var tracer = otel.Tracer("citeweb/features/chat")

type Service struct {
	resolver     SourceResolver
	extractor    Extractor
	completer    Completer
	settings     SettingsProvider
	queryLogger  *retrieval.QueryLogger
	publisher    EventPublisher
	fetchTimeout time.Duration
}

func NewService(resolver SourceResolver, extractor Extractor, completer Completer, sp SettingsProvider, ql *retrieval.QueryLogger) *Service {
	return &Service{
		resolver:    resolver,
		extractor:   extractor,
		completer:   completer,
		settings:    sp,
		queryLogger: ql,
	}
}

// WithPublisher enables chat.answered events.
func (s *Service) WithPublisher(p EventPublisher) *Service {
	s.publisher = p
	return s
}

func (s *Service) WithFetchTimeout(d time.Duration) *Service {
	s.fetchTimeout = d
	return s
}

// Answer runs the whole pipeline for one request.
func (s *Service) Answer(ctx context.Context, req Request) (*models.ResponsePayload, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	urls := nonBlank(req.URL)
	if query == "" && len(urls) == 0 {
		return nil, fmt.Errorf("%w: query is required", apperr.ErrValidation)
	}

	ctx, span := tracer.Start(ctx, "chat.Answer")
	defer span.End()

	set := s.loadSettings(ctx)
	if len(urls) == 0 && set.DetectURLs {
		urls = search.ExtractURLs(query)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = set.Model
	}
	span.SetAttributes(
		attribute.String("chat.model", model),
		attribute.Int("chat.explicit_urls", len(urls)),
	)

	sources, err := s.resolve(ctx, query, urls, set.SearchTopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return nil, err
	}

	records := s.extract(ctx, sources, set)

	budgets := prompt.Budgets{
		Corpus:            set.CorpusWordBudget,
		Structured:        set.StructuredWordBudget,
		StructuredEntries: set.StructuredMaxEntries,
	}
	var structured string
	if set.IncludeStructured {
		structured = prompt.MergeStructured(req.StructuredScrape, budgets)
	}
	turns := prompt.Compose(query, prompt.BuildContext(records, structured, budgets), prompt.ComposeOptions{
		EchoContext: set.EchoContext,
	})

	answer, err := s.complete(ctx, turns, model)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}

	payload, err := Assemble(answer, sources, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assemble failed")
		return nil, err
	}

	fallbacks := countFallbacks(records)
	duration := time.Since(start)

	if s.queryLogger != nil {
		s.queryLogger.Log(retrieval.QueryLogEntry{
			Query:         query,
			Model:         model,
			NumSources:    len(sources),
			NumFallbacks:  fallbacks,
			FromURLs:      len(urls) > 0,
			Duration:      duration,
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	s.publish(ctx, sources, query, model, fallbacks, duration)

	return payload, nil
}

func (s *Service) resolve(ctx context.Context, query string, urls []string, topK int) ([]models.CandidateSource, error) {
	ctx, span := tracer.Start(ctx, "chat.resolve")
	defer span.End()
	defer observe("resolve", time.Now())

	return s.resolver.Resolve(ctx, query, urls, topK)
}

func (s *Service) extract(ctx context.Context, sources []models.CandidateSource, set settings.Settings) []models.ExtractedRecord {
	ctx, span := tracer.Start(ctx, "chat.extract")
	defer span.End()
	defer observe("extract", time.Now())

	span.SetAttributes(attribute.Int("chat.sources", len(sources)))
	return s.extractor.Extract(ctx, sources, retrieval.Options{
		PageWordBudget: set.PageWordBudget,
		Concurrency:    set.FetchConcurrency,
		FetchTimeout:   s.fetchTimeout,
	})
}

func (s *Service) complete(ctx context.Context, turns []models.ChatTurn, model string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat.complete")
	defer span.End()
	defer observe("complete", time.Now())

	return s.completer.Complete(ctx, turns, model)
}

// loadSettings never fails: a broken settings store degrades to the
// configured defaults.
func (s *Service) loadSettings(ctx context.Context) settings.Settings {
	if s.settings == nil {
		return settings.Settings{}
	}
	set, err := s.settings.Get(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to load settings, using defaults", "error", err)
		return s.settings.Defaults()
	}
	return *set
}

func (s *Service) publish(ctx context.Context, sources []models.CandidateSource, query, model string, fallbacks int, d time.Duration) {
	if s.publisher == nil {
		return
	}

	links := make([]string, len(sources))
	for i, src := range sources {
		links[i] = src.Link
	}
	body, err := json.Marshal(AnsweredEvent{
		CorrelationID: middleware.GetCorrelationID(ctx),
		Query:         query,
		Model:         model,
		Links:         links,
		Fallbacks:     fallbacks,
		LatencyMs:     d.Milliseconds(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal chat event", "error", err)
		return
	}
	if err := s.publisher.Publish(config.TopicChatAnswered, body); err != nil {
		slog.WarnContext(ctx, "failed to publish chat event", "topic", config.TopicChatAnswered, "error", err)
	}
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func countFallbacks(records []models.ExtractedRecord) int {
	n := 0
	for _, r := range records {
		if r.Fallback {
			n++
		}
	}
	return n
}

func nonBlank(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
