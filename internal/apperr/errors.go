package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks input the caller must fix. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrUpstream marks a failed or malformed response from the search or completion provider.
	ErrUpstream = errors.New("upstream error")
	// ErrSourceFetch marks a single page that could not be fetched or parsed.
	// It is recovered inside the pipeline and never reaches a caller.
	ErrSourceFetch = errors.New("source fetch error")
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeUpstream   = "UPSTREAM_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
)

// Status maps an error to the HTTP status a handler should answer with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Code maps an error to the machine-readable code placed in error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUpstream):
		return CodeUpstream
	default:
		return CodeInternal
	}
}
