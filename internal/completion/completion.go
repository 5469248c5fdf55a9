package completion

import (
	"context"
	"fmt"
	"strings"

	"citeweb/internal/apperr"
	"citeweb/internal/models"
)

// NoResponse is returned as the answer when a provider produced no choices.
const NoResponse = "No response"

type Provider interface {
	Complete(ctx context.Context, turns []models.ChatTurn, model string) (string, error)
}

type route struct {
	prefix   string
	provider Provider
}

// Router sends each call to the provider registered for the model's prefix,
// or to the fallback provider when none matches.
type Router struct {
	fallback Provider
	routes   []route
}

func NewRouter(fallback Provider) *Router {
	return &Router{fallback: fallback}
}

// Route registers p for models starting with prefix. Earlier registrations win.
func (r *Router) Route(prefix string, p Provider) *Router {
	if p != nil {
		r.routes = append(r.routes, route{prefix: prefix, provider: p})
	}
	return r
}

func (r *Router) Complete(ctx context.Context, turns []models.ChatTurn, model string) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", fmt.Errorf("%w: model is required", apperr.ErrValidation)
	}
	for _, rt := range r.routes {
		if strings.HasPrefix(model, rt.prefix) {
			return rt.provider.Complete(ctx, turns, model)
		}
	}
	if r.fallback == nil {
		return "", fmt.Errorf("%w: no completion provider for model %q", apperr.ErrInternal, model)
	}
	return r.fallback.Complete(ctx, turns, model)
}
