package proxy

import "encoding/json"

// Message is a chat message in the OpenAI-compatible wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the non-streaming chat completion response. Content is kept
// raw so a JSON null can be told apart from an empty string.
type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is a single completion choice.
type Choice struct {
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Model represents a model entry returned by the /models endpoint.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelList is the response from /models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
