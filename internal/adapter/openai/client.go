package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"citeweb/internal/apperr"
	"citeweb/internal/completion"
	"citeweb/internal/metrics"
	"citeweb/internal/models"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	client  *goopenai.Client
	baseURL string
}

func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Client{client: goopenai.NewClientWithConfig(cfg), baseURL: cfg.BaseURL}
}

func (c *Client) Complete(ctx context.Context, turns []models.ChatTurn, model string) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, len(turns))
	for i, t := range turns {
		msgs[i] = goopenai.ChatCompletionMessage{Role: t.Role, Content: t.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	})
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("openai").Inc()
		slog.ErrorContext(ctx, "chat completion failed", "base_url", c.baseURL, "model", model, "error", err)
		return "", upstreamError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return completion.NoResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}

func upstreamError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: completion provider returned %d: %s", apperr.ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: completion provider returned %d: %v", apperr.ErrUpstream, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: completion provider: %v", apperr.ErrUpstream, err)
}
