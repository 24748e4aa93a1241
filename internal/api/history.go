package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kalambet/tutorgw/internal/storage"
	"github.com/kalambet/tutorgw/internal/tutor"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// History is the read side of the request journal.
type History interface {
	GetRecentInteractions(limit int) ([]storage.Interaction, error)
	CountResults(since time.Time) ([]storage.ResultCount, error)
}

type historyHandler struct {
	store History
}

// handleRecent lists the newest interactions. ?limit= caps the count.
func (hh *historyHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			httpError(w, http.StatusBadRequest, tutor.CodeValidation, "limit must be between 1 and %d", maxHistoryLimit)
			return
		}
		limit = n
	}

	items, err := hh.store.GetRecentInteractions(limit)
	if err != nil {
		slog.Error("history: listing interactions", "error", err)
		httpError(w, http.StatusInternalServerError, tutor.CodeUpstream, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interactions": items})
}

// handleSummary counts outcomes per operation. ?since= takes a Go duration
// such as 1h or 30m and defaults to 24h.
func (hh *historyHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			httpError(w, http.StatusBadRequest, tutor.CodeValidation, "since must be a positive duration such as 1h")
			return
		}
		window = d
	}

	since := time.Now().Add(-window)
	counts, err := hh.store.CountResults(since)
	if err != nil {
		slog.Error("history: counting results", "error", err)
		httpError(w, http.StatusInternalServerError, tutor.CodeUpstream, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":  since.UTC().Format(time.RFC3339),
		"counts": counts,
	})
}
