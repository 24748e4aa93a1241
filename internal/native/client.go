// Package native is the HTTP client for the second ("native") provider, a
// Mistral-style chat completions API.
package native

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultBaseURL = "https://api.mistral.ai/v1"
	DefaultModel   = "mistral-large-latest"
)

// ErrEmptyContent is returned when the response has no text after the
// content chunks are flattened.
var ErrEmptyContent = errors.New("native: empty message content")

// Message is an outgoing chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content Content `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return fmt.Sprintf("native: authentication failed (HTTP %d): check the API key: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("native: unexpected status %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status of the failed call.
func (e *StatusError) StatusCode() int { return e.Code }

// Client talks to the native provider.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client. Empty baseURL and model fall back to defaults.
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

// Model returns the model identifier used for completions.
func (c *Client) Model() string { return c.model }

// Chat sends a chat completion and returns the flattened assistant text.
func (c *Client) Chat(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyContent
	}

	text := cr.Choices[0].Message.Content.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

// ListModels returns the model identifiers visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding models: %w", err)
	}
	ids := make([]string, len(list.Data))
	for i, m := range list.Data {
		ids[i] = m.ID
	}
	return ids, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
