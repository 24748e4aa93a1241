package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/tutorgw/internal/provider"
	"github.com/kalambet/tutorgw/internal/validate"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_ResolveDoubt(t *testing.T) {
	general := &fakeProvider{id: provider.General, configured: true, reply: doubtJSON}
	svc := newTestService(t, general, &fakeProvider{id: provider.Native})

	result, err := mcpResolveDoubt(svc)(context.Background(), makeCallToolRequest("resolve_doubt", map[string]any{
		"question":   "What is inertia?",
		"curriculum": map[string]any{"board": "CBSE", "grade": "9"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got["explanation"] == "" {
		t.Errorf("result = %v", got)
	}
}

func TestMCPTool_MissingArgument(t *testing.T) {
	svc := newTestService(t, &fakeProvider{id: provider.General, configured: true}, &fakeProvider{id: provider.Native})

	result, err := mcpGenerateQuiz(svc)(context.Background(), makeCallToolRequest("generate_quiz", map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(toolText(t, result), "topic is required") {
		t.Errorf("result = %+v", result)
	}
}

func TestMCPTool_UnknownProvider(t *testing.T) {
	svc := newTestService(t, &fakeProvider{id: provider.General, configured: true}, &fakeProvider{id: provider.Native})

	result, _ := mcpGenerateContent(svc)(context.Background(), makeCallToolRequest("generate_content", map[string]any{
		"prompt":   "hello",
		"provider": "openai",
	}))
	if !result.IsError {
		t.Error("expected tool error for unknown provider")
	}
}

func TestMCPTool_ContextTooLong(t *testing.T) {
	general := &fakeProvider{id: provider.General, configured: true, reply: doubtJSON}
	svc := newTestService(t, general, &fakeProvider{id: provider.Native})

	result, err := mcpResolveDoubt(svc)(context.Background(), makeCallToolRequest("resolve_doubt", map[string]any{
		"question": "What is inertia?",
		"context":  strings.Repeat("c", validate.MaxPromptLen+1),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.HasPrefix(toolText(t, result), "VALIDATION_ERROR: context") {
		t.Errorf("result = %s", toolText(t, result))
	}
	if n := general.calls.Load(); n != 0 {
		t.Errorf("provider calls = %d, want 0", n)
	}
}

func TestMCPTool_GenerateQuiz_NotConfigured(t *testing.T) {
	svc := newTestService(t, provider.NewGeneral(provider.GeneralConfig{}), provider.NewNative(provider.NativeConfig{}))

	result, err := mcpGenerateQuiz(svc)(context.Background(), makeCallToolRequest("generate_quiz", map[string]any{
		"topic":         "Fractions",
		"num_questions": float64(3),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(toolText(t, result), "PROVIDER_NOT_CONFIGURED") {
		t.Errorf("result = %s", toolText(t, result))
	}
}

func TestMCPTool_GenerateContent(t *testing.T) {
	general := &fakeProvider{id: provider.General, configured: true, reply: "Fractions are parts of a whole."}
	svc := newTestService(t, general, &fakeProvider{id: provider.Native})

	result, _ := mcpGenerateContent(svc)(context.Background(), makeCallToolRequest("generate_content", map[string]any{
		"prompt": "Explain fractions",
	}))
	if result.IsError || toolText(t, result) != "Fractions are parts of a whole." {
		t.Errorf("result = %s", toolText(t, result))
	}
}

func TestMCPResource_Providers(t *testing.T) {
	svc := newTestService(t, &fakeProvider{id: provider.General}, &fakeProvider{id: provider.Native, configured: true})

	contents, err := mcpResourceProviders(svc)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "tutor://providers"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var a provider.Availability
	if err := json.Unmarshal([]byte(tc.Text), &a); err != nil {
		t.Fatal(err)
	}
	if a.General || !a.Native {
		t.Errorf("availability = %+v", a)
	}
}

func TestNewMCPServer(t *testing.T) {
	svc := newTestService(t, &fakeProvider{id: provider.General}, &fakeProvider{id: provider.Native})
	if s := NewMCPServer(svc, "test"); s == nil {
		t.Fatal("nil server")
	}
}
