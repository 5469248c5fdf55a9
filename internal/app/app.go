package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/api/option"

	"citeweb/features/chat"
	"citeweb/features/mcp"
	"citeweb/features/scrape"
	"citeweb/features/share"
	"citeweb/features/stats"
	"citeweb/internal/adapter/customsearch"
	"citeweb/internal/adapter/gemini"
	"citeweb/internal/adapter/openai"
	"citeweb/internal/completion"
	"citeweb/internal/config"
	"citeweb/internal/fetch"
	"citeweb/internal/middleware"
	"citeweb/internal/retrieval"
	"citeweb/internal/search"
	"citeweb/internal/settings"
	"citeweb/internal/worker"
)

type App struct {
	Handler     http.Handler
	ChatService *chat.Service

	port     int
	gemini   *gemini.Client
	consumer *nsq.Consumer
}

func New(
	cfg *config.Config,
	db Database,
	rdb *redis.Client,
	pub EventPublisher,
	logger *slog.Logger,
) (*App, error) {
	sqlDB, ok := db.(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("unsupported database type %T", db)
	}
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}

	// Feature: Settings
	settingsService := settings.NewService(settings.NewPostgresRepo(sqlDB), settingsDefaults(cfg))
	settingsHandler := settings.NewHandler(settingsService)

	// Adapters
	fetchClient := fetch.NewClient(fetch.Options{
		Timeout:      seconds(cfg.FetchTimeoutSeconds),
		MaxBodyBytes: cfg.FetchMaxBodyBytes,
	})

	var searchProvider search.Provider
	if cfg.GoogleAPIKey != "" {
		var opts []option.ClientOption
		if cfg.SearchEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.SearchEndpoint))
		}
		cse, err := customsearch.NewClient(context.Background(), cfg.GoogleAPIKey, cfg.GoogleSearchEngineID, opts...)
		if err != nil {
			return nil, err
		}
		searchProvider = cse
	} else {
		logger.Warn("GOOGLE_API_KEY not set, search is disabled; requests must supply urls")
	}

	upstreamHTTP := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	geminiClient := gemini.NewClient(cfg.GeminiAPIKey)
	completer := completion.NewRouter(openai.NewClient(cfg.CompletionAPIKey, cfg.CompletionBaseURL, upstreamHTTP)).
		Route("gemini-", geminiClient)

	// Feature: Chat
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		logger.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	extractor := retrieval.NewService(fetchClient)
	chatService := chat.NewService(search.NewResolver(searchProvider), extractor, completer, settingsService, queryLogger).
		WithFetchTimeout(seconds(cfg.FetchTimeoutSeconds))
	if pub != nil {
		chatService.WithPublisher(pub)
	}
	chatHandler := chat.NewHandler(chatService, cfg.MaxRequestBytes, seconds(cfg.ChatTimeoutSeconds))

	// Feature: Scrape
	scrapeHandler := scrape.NewHandler(scrape.NewService(fetchClient, seconds(cfg.ScrapeTimeoutSeconds), cfg.FetchConcurrency))

	// Feature: Share
	shareHandler := share.NewHandler(share.NewService(share.NewRedisRepo(rdb), time.Duration(cfg.ShareTTLHours)*time.Hour))

	// Feature: Stats
	statsRepo := stats.NewRedisRepo(rdb)
	statsHandler := stats.NewHandler(statsRepo)

	var consumer *nsq.Consumer
	if pub != nil && cfg.EnableEvents {
		consumer, err = newAnsweredConsumer(cfg.NSQDHost, worker.NewAnsweredConsumer(statsRepo))
		if err != nil {
			logger.Error("failed to start answered consumer, stats will not update", "error", err)
		}
	}

	// Feature: MCP
	mcpHandler := mcp.NewHandler(chatService, extractor)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", chatHandler.Chat)
	mux.HandleFunc("POST /scrape", scrapeHandler.Scrape)

	mux.HandleFunc("POST /share", shareHandler.Create)
	mux.HandleFunc("GET /share/{id}", shareHandler.Get)

	mux.HandleFunc("GET /stats", statsHandler.GetStats)

	mux.HandleFunc("GET /settings", settingsHandler.GetSettings)
	mux.HandleFunc("PUT /settings", settingsHandler.UpdateSettings)

	mux.Handle("POST /mcp", mcpHandler)
	mux.HandleFunc("GET /mcp/sse", mcpHandler.HandleSSE)
	mux.HandleFunc("POST /mcp/messages", mcpHandler.HandleMessage)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	handler := otelhttp.NewHandler(middleware.CORS(middleware.CorrelationID(mux)), "citeweb")

	return &App{
		Handler:     handler,
		ChatService: chatService,
		port:        cfg.ServerPort,
		gemini:      geminiClient,
		consumer:    consumer,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		if a.consumer != nil {
			a.consumer.Stop()
		}
		if err := a.gemini.Close(); err != nil {
			slog.Warn("failed to close gemini client", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newAnsweredConsumer(nsqdAddr string, h nsq.Handler) (*nsq.Consumer, error) {
	consumer, err := nsq.NewConsumer(config.TopicChatAnswered, "stats", nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	consumer.AddHandler(h)
	if err := consumer.ConnectToNSQD(nsqdAddr); err != nil {
		consumer.Stop()
		return nil, err
	}
	slog.Info("NSQ answered consumer connected", "topic", config.TopicChatAnswered)
	return consumer, nil
}

func settingsDefaults(cfg *config.Config) settings.Settings {
	return settings.Settings{
		Model:                cfg.DefaultModel,
		SearchTopK:           cfg.SearchTopK,
		PageWordBudget:       cfg.PageWordBudget,
		CorpusWordBudget:     cfg.CorpusWordBudget,
		StructuredWordBudget: cfg.StructuredWordBudget,
		StructuredMaxEntries: cfg.StructuredMaxEntries,
		FetchConcurrency:     cfg.FetchConcurrency,
		IncludeStructured:    true,
		DetectURLs:           true,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
