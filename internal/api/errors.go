package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/tutorgw/internal/tutor"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string     `json:"error"`
	Code  tutor.Code `json:"code,omitempty"`
}

func httpError(w http.ResponseWriter, status int, code tutor.Code, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: fmt.Sprintf(format, args...), Code: code})
}

// statusFor maps an error class to its HTTP status.
func statusFor(code tutor.Code) int {
	switch code {
	case tutor.CodeValidation:
		return http.StatusBadRequest
	case tutor.CodeRateLimited:
		return http.StatusTooManyRequests
	case tutor.CodeNotConfigured:
		return http.StatusServiceUnavailable
	case tutor.CodeTimeout:
		return http.StatusGatewayTimeout
	case tutor.CodeNormalization:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// writeServiceError classifies err and writes the matching response.
// Normalization failures get a generic message; the raw model output stays
// in the server log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := tutor.Classify(err)
	status := statusFor(code)

	slog.Warn("request failed",
		"request_id", tutor.RequestID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"error", err,
	)

	switch code {
	case tutor.CodeNormalization:
		httpError(w, status, code, "the AI response could not be processed, please try again")
	case tutor.CodeTimeout:
		httpError(w, status, code, "the AI provider timed out, please try again")
	default:
		httpError(w, status, code, "%s", err.Error())
	}
}

// validationMessage renders validator errors with JSON field names.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s violates %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
