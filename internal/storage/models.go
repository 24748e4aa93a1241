package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one tutoring request as seen by the gateway.
type Interaction struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"requestId"`
	CreatedAt  time.Time `json:"createdAt"`
	Operation  string    `json:"operation"`
	Provider   string    `json:"provider,omitempty"`
	Result     string    `json:"result"` // "ok" or an error code
	Attempts   int       `json:"attempts"`
	DurationMS int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

// ResultCount aggregates interactions by operation and result.
type ResultCount struct {
	Operation string `json:"operation"`
	Result    string `json:"result"`
	Count     int    `json:"count"`
}
