package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func userMessage(text string) []Message {
	return []Message{{Role: "user", Content: text}}
}

func TestChat_ReturnsContent(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"Hello!"}}]}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "test/model")
	text, err := c.Chat(context.Background(), userMessage("hi"), 4096, 0.3)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if text != "Hello!" {
		t.Errorf("text = %q, want %q", text, "Hello!")
	}
	if got.Model != "test/model" {
		t.Errorf("model = %q, want %q", got.Model, "test/model")
	}
	if got.MaxTokens != 4096 {
		t.Errorf("max_tokens = %d, want 4096", got.MaxTokens)
	}
	if got.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", got.Temperature)
	}
}

func TestChat_AuthHeader(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	if _, err := c.Chat(context.Background(), userMessage("hi"), 10, 0); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	want := "Bearer test-key"
	if gotAuth != want {
		t.Errorf("Authorization = %q, want %q", gotAuth, want)
	}
}

func TestChat_EmptyContent(t *testing.T) {
	bodies := map[string]string{
		"null content":  `{"choices":[{"message":{"role":"assistant","content":null}}]}`,
		"empty content": `{"choices":[{"message":{"role":"assistant","content":"   "}}]}`,
		"no choices":    `{"choices":[]}`,
		"missing":       `{"choices":[{"message":{"role":"assistant"}}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			c := NewClient("k", srv.URL, "")
			_, err := c.Chat(context.Background(), userMessage("hi"), 10, 0)
			if !errors.Is(err, ErrEmptyContent) {
				t.Errorf("err = %v, want ErrEmptyContent", err)
			}
		})
	}
}

func TestChat_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"No auth credentials found"}}`)
	}))
	defer srv.Close()

	c := NewClient("bad-key", srv.URL, "")
	_, err := c.Chat(context.Background(), userMessage("hi"), 10, 0)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode() != http.StatusUnauthorized {
		t.Errorf("StatusCode() = %d, want 401", se.StatusCode())
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Errorf("error = %q, want it to mention the API key", err.Error())
	}
}

func TestChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "")
	_, err := c.Chat(context.Background(), userMessage("hi"), 10, 0)
	if err == nil || !strings.Contains(err.Error(), "unexpected status 502") {
		t.Errorf("err = %v, want unexpected status 502", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		list := ModelList{
			Object: "list",
			Data: []Model{
				{ID: "anthropic/claude-opus-4", Object: "model"},
				{ID: "openai/gpt-4o", Object: "model"},
			},
		}
		json.NewEncoder(w).Encode(list)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}

	want := []string{"anthropic/claude-opus-4", "openai/gpt-4o"}
	if len(models) != len(want) {
		t.Fatalf("got %d models, want %d", len(models), len(want))
	}
	for i, w := range want {
		if models[i].ID != w {
			t.Errorf("models[%d].ID = %q, want %q", i, models[i].ID, w)
		}
	}
}

func TestListModels_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ModelList{Object: "list"})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "")
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("got %d models, want 0", len(models))
	}
}
