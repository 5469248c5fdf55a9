package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"citeweb/internal/apperr"
	"citeweb/internal/metrics"
	"citeweb/internal/middleware"
	"citeweb/internal/models"
)

type Answerer interface {
	Answer(ctx context.Context, req Request) (*models.ResponsePayload, error)
}

type Handler struct {
	svc      Answerer
	maxBytes int64
	timeout  time.Duration
}

func NewHandler(svc Answerer, maxBytes int64, timeout time.Duration) *Handler {
	return &Handler{svc: svc, maxBytes: maxBytes, timeout: timeout}
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(r.Context(), w, fmt.Errorf("%w: request body exceeds %d bytes", apperr.ErrValidation, tooLarge.Limit))
			return
		}
		h.fail(r.Context(), w, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}

	if err := ValidateRequest(body); err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.fail(r.Context(), w, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	payload, err := h.svc.Answer(ctx, req)
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}

	metrics.ChatRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "chat request failed", "error", err)
	} else {
		slog.WarnContext(ctx, "chat request rejected", "error", err)
	}
	metrics.ChatRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	writeError(ctx, w, apperr.Code(err), err.Error(), status)
}

func writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	json.NewEncoder(w).Encode(resp)
}
