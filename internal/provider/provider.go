// Package provider holds the interchangeable language-model adapters the
// tutoring façade dispatches to, and the policy for choosing between them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Completion parameters shared by both adapters.
const (
	MaxTokens   = 4096
	Temperature = 0.3
)

// Identity names one of the two provider slots.
type Identity string

const (
	General Identity = "general"
	Native  Identity = "native"
)

// ParseIdentity maps a request selector to an Identity. The empty string is
// valid and means "use the configured default".
func ParseIdentity(s string) (Identity, error) {
	switch Identity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case General:
		return General, nil
	case Native:
		return Native, nil
	default:
		return "", fmt.Errorf("unknown provider %q: must be %q or %q", s, General, Native)
	}
}

// Other returns the opposite slot.
func (id Identity) Other() Identity {
	if id == Native {
		return General
	}
	return Native
}

// Provider completes a prompt with an upstream language model.
type Provider interface {
	ID() Identity
	// Configured reports whether the adapter has the settings it needs.
	// It reflects configuration only, not reachability.
	Configured() bool
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
}

var (
	// ErrNotConfigured matches any NotConfiguredError.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrEmptyResponse is returned when the upstream answered without text.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// NotConfiguredError is returned by adapters that lack credentials or an
// endpoint. Retrying cannot fix it.
type NotConfiguredError struct {
	Provider Identity
	Hint     string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s provider is not configured: %s", e.Provider, e.Hint)
}

func (e *NotConfiguredError) Is(target error) bool { return target == ErrNotConfigured }

// Terminal marks the error as not worth retrying.
func (e *NotConfiguredError) Terminal() bool { return true }
