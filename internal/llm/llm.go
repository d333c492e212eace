package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies completion failures so the retry policy can decide
// between retrying, advancing to another model, and failing fast without
// string-matching transport errors.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRateLimited
	KindTimeout
	KindUnauthorized
	KindModelUnavailable
	KindAPI
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindAPI:
		return "api_error"
	default:
		return "unknown"
	}
}

// Error is a classified completion failure.
type Error struct {
	Kind    ErrorKind
	Model   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm: %s (model %s): %s", e.Kind, e.Model, e.Message)
}

// KindOf extracts the classification from err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Completer produces a completion for a prompt against a named model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int, temperature float64) (string, error)
}
