package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"citeweb/internal/apperr"
	"citeweb/internal/completion"
	"citeweb/internal/metrics"
	"citeweb/internal/models"
)

// Client completes chat turns with Gemini models. The underlying genai
// client is created on first use.
type Client struct {
	apiKey     string
	clientOpts []option.ClientOption

	mu     sync.RWMutex
	client *genai.Client
}

func NewClient(apiKey string, opts ...option.ClientOption) *Client {
	return &Client{apiKey: apiKey, clientOpts: opts}
}

func (c *Client) Complete(ctx context.Context, turns []models.ChatTurn, model string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key not configured", apperr.ErrInternal)
	}
	if len(turns) == 0 {
		return "", fmt.Errorf("%w: no turns to send", apperr.ErrInternal)
	}

	client, err := c.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: gemini client: %v", apperr.ErrUpstream, err)
	}

	gm := client.GenerativeModel(model)
	var system []string
	var history []*genai.Content
	for _, t := range turns[:len(turns)-1] {
		switch t.Role {
		case models.RoleSystem:
			system = append(system, t.Content)
		case models.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(t.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(t.Content)}})
		}
	}
	if len(system) > 0 {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}

	cs := gm.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("gemini").Inc()
		slog.ErrorContext(ctx, "gemini completion failed", "model", model, "error", err)
		return "", upstreamError(err)
	}

	answer := firstText(resp)
	if answer == "" {
		return completion.NoResponse, nil
	}
	return answer, nil
}

// Close releases the underlying client, if one was created.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Client) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.RLock()
	if c.client != nil {
		defer c.mu.RUnlock()
		return c.client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check
	if c.client != nil {
		return c.client, nil
	}

	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.clientOpts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func upstreamError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return fmt.Errorf("%w: completion provider returned %d: %s", apperr.ErrUpstream, gErr.Code, gErr.Message)
	}
	return fmt.Errorf("%w: completion provider: %v", apperr.ErrUpstream, err)
}
