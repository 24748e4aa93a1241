package tutor

import (
	"context"
	"errors"
	"strings"

	"github.com/kalambet/tutorgw/internal/normalize"
	"github.com/kalambet/tutorgw/internal/provider"
	"github.com/kalambet/tutorgw/internal/retry"
	"github.com/kalambet/tutorgw/internal/validate"
)

// Code is the caller-facing error class.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeNotConfigured Code = "PROVIDER_NOT_CONFIGURED"
	CodeTimeout       Code = "TIMEOUT"
	CodeUpstreamAuth  Code = "UPSTREAM_AUTH_FAILED"
	CodeNormalization Code = "NORMALIZATION_FAILED"
	CodeUpstream      Code = "UPSTREAM_ERROR"
)

type statusCoder interface {
	StatusCode() int
}

// Classify maps an error returned by Service to its Code. Typed errors are
// checked first; message content is the fallback.
func Classify(err error) Code {
	var verr *validate.Error
	var terr *retry.TimeoutError
	var sc statusCoder

	switch {
	case errors.As(err, &verr):
		return CodeValidation
	case errors.Is(err, provider.ErrNotConfigured):
		return CodeNotConfigured
	case errors.As(err, &terr), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &sc) && (sc.StatusCode() == 401 || sc.StatusCode() == 403):
		return CodeUpstreamAuth
	case errors.Is(err, normalize.ErrNormalization):
		return CodeNormalization
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not configured"):
		return CodeNotConfigured
	case strings.Contains(msg, "api key"), strings.Contains(msg, "credential"):
		return CodeUpstreamAuth
	case strings.Contains(msg, "timed out"):
		return CodeTimeout
	}
	return CodeUpstream
}
