package proxy

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
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "meta-llama/llama-3.1-70b-instruct"

	maxErrorBody = 4 << 10
)

// ErrEmptyContent is returned when the upstream answered without message text.
var ErrEmptyContent = errors.New("openrouter: empty message content")

// StatusError is returned for any non-200 upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return fmt.Sprintf("openrouter: authentication failed (HTTP %d): check the API key: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("openrouter: unexpected status %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status of the failed call.
func (e *StatusError) StatusCode() int { return e.Code }

// Client communicates with the OpenRouter API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	referer    string
	title      string
}

// NewClient creates an OpenRouter client. Empty baseURL and model fall back
// to the defaults. Deadlines come from the caller's context.
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
		referer:    "https://github.com/kalambet/tutorgw",
		title:      "tutorgw",
	}
}

// Model returns the model identifier used for completions.
func (c *Client) Model() string { return c.model }

// Chat sends a non-streaming chat completion and returns the assistant text.
// A null or empty message content is reported as ErrEmptyContent.
func (c *Client) Chat(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(ChatRequest{
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
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyContent
	}

	var text *string
	if err := json.Unmarshal(cr.Choices[0].Message.Content, &text); err != nil || text == nil || strings.TrimSpace(*text) == "" {
		return "", ErrEmptyContent
	}
	return *text, nil
}

// ListModels returns the list of available models from OpenRouter.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
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
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var list ModelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding models: %w", err)
	}

	if list.Data == nil {
		return []Model{}, nil
	}
	return list.Data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)
}
