package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"citeweb/internal/apperr"
	"citeweb/internal/middleware"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type Request struct {
	URLs []string `json:"urls"`
}

func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}

	pages, err := h.svc.Scrape(r.Context(), req.URLs)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"content": pages})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.Status(err))

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    apperr.Code(err),
			"message": err.Error(),
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	json.NewEncoder(w).Encode(resp)
}
