package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/tutorgw/internal/provider"
	"github.com/kalambet/tutorgw/internal/tutor"
)

// NewMCPServer creates an MCP server exposing the tutoring operations as
// tools and provider availability as a resource.
func NewMCPServer(svc *tutor.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tutorgw",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("tutorgw: tutoring gateway for doubt resolution, lesson and quiz generation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("resolve_doubt",
			mcp.WithDescription("Explain a student's question with examples and an optional check question."),
			mcp.WithString("question", mcp.Description("The student's question"), mcp.Required()),
			mcp.WithString("context", mcp.Description("Optional surrounding context, e.g. the chapter")),
			withCurriculum(),
			withProvider(),
		),
		mcpResolveDoubt(svc),
	)

	s.AddTool(
		mcp.NewTool("generate_content",
			mcp.WithDescription("Generate free-form study material from a prompt."),
			mcp.WithString("prompt", mcp.Description("What to write"), mcp.Required()),
			mcp.WithString("context", mcp.Description("Optional surrounding context")),
			withCurriculum(),
			withProvider(),
		),
		mcpGenerateContent(svc),
	)

	s.AddTool(
		mcp.NewTool("generate_teaching_content",
			mcp.WithDescription("Generate a structured lesson on a topic."),
			mcp.WithString("topic", mcp.Description("Lesson topic"), mcp.Required()),
			mcp.WithString("context", mcp.Description("Optional surrounding context")),
			withCurriculum(),
			withProvider(),
		),
		mcpGenerateTeaching(svc),
	)

	s.AddTool(
		mcp.NewTool("generate_quiz",
			mcp.WithDescription("Generate a multiple-choice quiz on a topic."),
			mcp.WithString("topic", mcp.Description("Quiz topic"), mcp.Required()),
			mcp.WithNumber("num_questions", mcp.Description("Number of questions, 1-20 (default 5)")),
			mcp.WithString("difficulty", mcp.Description("Difficulty level (default medium)"), mcp.Enum(tutor.Difficulties...)),
			mcp.WithString("context", mcp.Description("Optional surrounding context")),
			withCurriculum(),
			withProvider(),
		),
		mcpGenerateQuiz(svc),
	)

	s.AddResource(
		mcp.NewResource(
			"tutor://providers",
			"Provider Availability",
			mcp.WithResourceDescription("Which language-model providers are configured"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProviders(svc),
	)

	return s
}

func withProvider() mcp.ToolOption {
	return mcp.WithString("provider",
		mcp.Description("Provider to use; omit for the configured default"),
		mcp.Enum(string(provider.General), string(provider.Native)),
	)
}

// withCurriculum adds the curriculum fields as one JSON-object argument.
func withCurriculum() mcp.ToolOption {
	return mcp.WithObject("curriculum",
		mcp.Description("Optional curriculum: board, grade, exam, subject, topic"),
		mcp.Properties(map[string]any{
			"board":   map[string]any{"type": "string"},
			"grade":   map[string]any{"type": "string"},
			"exam":    map[string]any{"type": "string"},
			"subject": map[string]any{"type": "string"},
			"topic":   map[string]any{"type": "string"},
		}),
	)
}

func curriculumArg(req mcp.CallToolRequest) *tutor.CurriculumContext {
	m, ok := req.GetArguments()["curriculum"].(map[string]any)
	if !ok {
		return nil
	}
	get := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return &tutor.CurriculumContext{
		Board:   get("board"),
		Grade:   get("grade"),
		Exam:    get("exam"),
		Subject: get("subject"),
		Topic:   get("topic"),
	}
}

func providerArg(req mcp.CallToolRequest) (provider.Identity, error) {
	return provider.ParseIdentity(req.GetString("provider", ""))
}

// toolContext tags the call with a request id for log correlation.
func toolContext(ctx context.Context) context.Context {
	return tutor.WithRequestID(ctx, uuid.New().String())
}

func mcpResolveDoubt(svc *tutor.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		id, err := providerArg(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		res, err := svc.ResolveDoubt(toolContext(ctx), tutor.DoubtRequest{
			Question:   question,
			Context:    req.GetString("context", ""),
			Curriculum: curriculumArg(req),
			Provider:   id,
		})
		return mcpResult(res, err)
	}
}

func mcpGenerateContent(svc *tutor.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return mcpError("prompt is required"), nil
		}
		id, err := providerArg(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		res, err := svc.GenerateContent(toolContext(ctx), tutor.ContentRequest{
			Prompt:     prompt,
			Context:    req.GetString("context", ""),
			Curriculum: curriculumArg(req),
			Provider:   id,
		})
		if err != nil {
			return mcpError(toolErrorText(err)), nil
		}
		return mcpText(res.Content), nil
	}
}

func mcpGenerateTeaching(svc *tutor.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}
		id, err := providerArg(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		res, err := svc.GenerateTeachingContent(toolContext(ctx), tutor.TeachingRequest{
			Topic:      topic,
			Context:    req.GetString("context", ""),
			Curriculum: curriculumArg(req),
			Provider:   id,
		})
		return mcpResult(res, err)
	}
}

func mcpGenerateQuiz(svc *tutor.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}
		id, err := providerArg(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		res, err := svc.GenerateQuiz(toolContext(ctx), tutor.QuizRequest{
			Topic:        topic,
			NumQuestions: req.GetInt("num_questions", 0),
			Difficulty:   req.GetString("difficulty", ""),
			Context:      req.GetString("context", ""),
			Curriculum:   curriculumArg(req),
			Provider:     id,
		})
		return mcpResult(res, err)
	}
}

func mcpResourceProviders(svc *tutor.Service) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(svc.Availability())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal availability: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// mcpResult renders v as indented JSON, or err as a tool error.
func mcpResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcpError(toolErrorText(err)), nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func toolErrorText(err error) string {
	code := tutor.Classify(err)
	if code == tutor.CodeNormalization {
		return fmt.Sprintf("%s: the AI response could not be processed", code)
	}
	return fmt.Sprintf("%s: %v", code, err)
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
