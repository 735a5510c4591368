// Package llm submits design element payloads to the remote validation
// service and classifies its failures.
package llm

import (
	"context"
	"errors"

	"github.com/Lllllllleong/evidenceassessment/internal/models"
)

var (
	// ErrUnauthorized covers token acquisition failures and 401/403 replies.
	ErrUnauthorized = errors.New("validation endpoint rejected credentials")
	// ErrUnexpectedStatus wraps any other non-2xx reply.
	ErrUnexpectedStatus = errors.New("unexpected status from validation endpoint")
	// ErrDecode is returned when a 2xx reply body is not the expected JSON.
	ErrDecode = errors.New("failed to decode validation response")
	// ErrEmptyAnswer is returned when the model produced no text at all.
	ErrEmptyAnswer = errors.New("validator returned no answer")
)

// Validator answers one design element prompt against its evidence and
// returns the raw answer text.
type Validator interface {
	Validate(ctx context.Context, payload models.EvidencePayload) (string, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, payload models.EvidencePayload) (string, error)

func (f ValidatorFunc) Validate(ctx context.Context, payload models.EvidencePayload) (string, error) {
	return f(ctx, payload)
}

// Classify maps a validation error to the issue kind it is reported under.
// An error is only reported as cancelled when ctx itself is done; a client
// timeout on a live ctx is a network failure.
func Classify(ctx context.Context, err error) models.IssueKind {
	switch {
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return models.IssueCancelled
	case errors.Is(err, ErrUnauthorized):
		return models.IssueAuth
	case errors.Is(err, ErrDecode), errors.Is(err, ErrEmptyAnswer):
		return models.IssueParse
	default:
		return models.IssueNetwork
	}
}
