package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/tutorgw/internal/ollama"
	"github.com/kalambet/tutorgw/internal/proxy"
)

// Transport is the upstream a General adapter resolved at construction.
type Transport string

const (
	TransportOpenRouter Transport = "openrouter"
	TransportLocal      Transport = "local"
	TransportNone       Transport = "none"
)

// GeneralConfig carries the settings of both general-purpose transports.
type GeneralConfig struct {
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string
	LocalBaseURL      string
	LocalModel        string
}

// GeneralAdapter is the general-purpose provider. It prefers the hosted
// routing service when an API key is present, falls back to a self-hosted
// Ollama endpoint, and is permanently unconfigured otherwise.
type GeneralAdapter struct {
	transport Transport
	router    *proxy.Client
	local     *ollama.Client
}

// NewGeneral resolves the transport from cfg.
func NewGeneral(cfg GeneralConfig) *GeneralAdapter {
	switch {
	case cfg.OpenRouterAPIKey != "":
		return &GeneralAdapter{
			transport: TransportOpenRouter,
			router:    proxy.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModel),
		}
	case cfg.LocalBaseURL != "":
		return &GeneralAdapter{
			transport: TransportLocal,
			local:     ollama.New(cfg.LocalBaseURL, cfg.LocalModel),
		}
	default:
		return &GeneralAdapter{transport: TransportNone}
	}
}

func (g *GeneralAdapter) ID() Identity { return General }

func (g *GeneralAdapter) Configured() bool { return g.transport != TransportNone }

// Transport reports which upstream the adapter uses.
func (g *GeneralAdapter) Transport() Transport { return g.transport }

// Model returns the upstream model identifier, or "" when unconfigured.
func (g *GeneralAdapter) Model() string {
	switch g.transport {
	case TransportOpenRouter:
		return g.router.Model()
	case TransportLocal:
		return g.local.Model()
	}
	return ""
}

func (g *GeneralAdapter) Complete(ctx context.Context, prompt, systemPrompt string) (string, error) {
	system := strings.TrimSpace(systemPrompt)

	switch g.transport {
	case TransportOpenRouter:
		msgs := make([]proxy.Message, 0, 2)
		if system != "" {
			msgs = append(msgs, proxy.Message{Role: "system", Content: system})
		}
		msgs = append(msgs, proxy.Message{Role: "user", Content: prompt})

		text, err := g.router.Chat(ctx, msgs, MaxTokens, Temperature)
		if errors.Is(err, proxy.ErrEmptyContent) {
			return "", fmt.Errorf("general provider (openrouter): %w", ErrEmptyResponse)
		}
		return text, err

	case TransportLocal:
		msgs := make([]ollama.Message, 0, 2)
		if system != "" {
			msgs = append(msgs, ollama.Message{Role: "system", Content: system})
		}
		msgs = append(msgs, ollama.Message{Role: "user", Content: prompt})

		text, err := g.local.Chat(ctx, msgs, &ollama.Options{Temperature: Temperature, NumPredict: MaxTokens})
		if errors.Is(err, ollama.ErrEmptyContent) {
			return "", fmt.Errorf("general provider (local): %w", ErrEmptyResponse)
		}
		return text, err
	}

	return "", &NotConfiguredError{
		Provider: General,
		Hint:     "set TUTORGW_OPENROUTER_API_KEY or TUTORGW_LOCAL_BASE_URL",
	}
}

// Probe checks that the resolved upstream answers. It is used for
// operator-facing status output only; dispatch never probes.
func (g *GeneralAdapter) Probe(ctx context.Context) error {
	switch g.transport {
	case TransportOpenRouter:
		_, err := g.router.ListModels(ctx)
		return err
	case TransportLocal:
		if !g.local.IsRunning(ctx) {
			return fmt.Errorf("local inference endpoint is not reachable")
		}
		if !g.local.HasModel(ctx) {
			return fmt.Errorf("model %s is not available locally", g.local.Model())
		}
		return nil
	}
	return &NotConfiguredError{Provider: General, Hint: "no transport"}
}
