package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/tutorgw/internal/native"
)

// NativeConfig carries the native provider settings.
type NativeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NativeAdapter is the second provider, active only with its own API key.
type NativeAdapter struct {
	client *native.Client
}

// NewNative builds the adapter. Without an API key it stays unconfigured.
func NewNative(cfg NativeConfig) *NativeAdapter {
	if cfg.APIKey == "" {
		return &NativeAdapter{}
	}
	return &NativeAdapter{client: native.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Model)}
}

func (n *NativeAdapter) ID() Identity { return Native }

func (n *NativeAdapter) Configured() bool { return n.client != nil }

// Model returns the upstream model identifier, or "" when unconfigured.
func (n *NativeAdapter) Model() string {
	if n.client == nil {
		return ""
	}
	return n.client.Model()
}

func (n *NativeAdapter) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if n.client == nil {
		return "", &NotConfiguredError{Provider: Native, Hint: "set TUTORGW_NATIVE_API_KEY"}
	}

	system := strings.TrimSpace(systemPrompt)
	msgs := make([]native.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, native.Message{Role: "system", Content: system})
	}
	msgs = append(msgs, native.Message{Role: "user", Content: prompt})

	text, err := n.client.Chat(ctx, msgs, MaxTokens, Temperature)
	if errors.Is(err, native.ErrEmptyContent) {
		return "", fmt.Errorf("native provider: %w", ErrEmptyResponse)
	}
	return text, err
}

// Probe lists models to check the key and endpoint.
func (n *NativeAdapter) Probe(ctx context.Context) error {
	if n.client == nil {
		return &NotConfiguredError{Provider: Native, Hint: "no API key"}
	}
	_, err := n.client.ListModels(ctx)
	return err
}
