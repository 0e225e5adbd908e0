package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lumehealth/intake/internal/conversation"
	"github.com/lumehealth/intake/internal/question"
	"github.com/lumehealth/intake/internal/storage"
)

// MCPConversation is the orchestrator surface the MCP tools need.
// Implemented by *conversation.Orchestrator.
type MCPConversation interface {
	Initialize(ctx context.Context, userID string) (conversation.Event, error)
	AnswerFor(ctx context.Context, userID, text, field string) (conversation.Event, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     ProfileStore
	Conv      MCPConversation
	Questions QuestionSource
	Version   string
}

// NewMCPServer creates an MCP server exposing the profile and conversation
// operations as tools, so agents embedding the service get the same contract
// as the HTTP and WebSocket transports.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"intake",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("intake — conversational wellness profile collection. Ask questions, submit answers, and read back structured profiles."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("profile_get",
			mcp.WithDescription("Fetch a user's wellness profile as JSON."),
			mcp.WithString("user_id", mcp.Description("Profile owner id"), mcp.Required()),
		),
		mcpProfileGet(deps),
	)

	s.AddTool(
		mcp.NewTool("profile_update",
			mcp.WithDescription("Set a single profile field directly, outside the conversational flow."),
			mcp.WithString("user_id", mcp.Description("Profile owner id"), mcp.Required()),
			mcp.WithString("field", mcp.Description("Field name (age, gender, activity_level, dietary_preference, sleep_quality, stress_level, health_goals)"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to set"), mcp.Required()),
		),
		mcpProfileUpdate(deps),
	)

	s.AddTool(
		mcp.NewTool("profile_completion",
			mcp.WithDescription("Report completion percentage and missing fields for a profile."),
			mcp.WithString("user_id", mcp.Description("Profile owner id"), mcp.Required()),
		),
		mcpProfileCompletion(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_next_question",
			mcp.WithDescription("Generate the next question to ask for a profile's first missing field."),
			mcp.WithString("user_id", mcp.Description("Profile owner id"), mcp.Required()),
		),
		mcpAskNextQuestion(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_answer",
			mcp.WithDescription("Submit a free-text answer to the conversation; returns the merged fields and the next question or a completion notice."),
			mcp.WithString("user_id", mcp.Description("Profile owner id"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The user's answer text"), mcp.Required()),
			mcp.WithString("field", mcp.Description("Optional field hint for the answer")),
		),
		mcpSubmitAnswer(deps),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"intake://profile/{user_id}",
			"User Profile",
			mcp.WithTemplateDescription("Wellness profile for a user as JSON"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpProfileGet(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		p, err := deps.Store.GetProfile(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("profile %q not found", userID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}

		return mcpJSON(p)
	}
}

func mcpProfileUpdate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		p, err := deps.Store.GetProfile(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("profile %q not found", userID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}

		if _, err := p.Apply(map[string]any{field: value}); err != nil {
			return mcpError(err.Error()), nil
		}
		if err := deps.Store.SaveProfile(ctx, p); err != nil {
			return mcpError(fmt.Sprintf("failed to save profile: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Set %s = %s (completion %.2f%%)", field, value, p.Completion())), nil
	}
}

func mcpProfileCompletion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		p, err := deps.Store.GetProfile(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("profile %q not found", userID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}

		missing := p.MissingFields()
		if missing == nil {
			missing = []string{}
		}
		return mcpJSON(map[string]any{
			"completion_percentage": p.Completion(),
			"missing_fields":        missing,
			"is_complete":           p.IsComplete(),
		})
	}
}

func mcpAskNextQuestion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		p, err := deps.Store.GetProfile(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("profile %q not found", userID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}
		if p.IsComplete() {
			return mcpJSON(map[string]any{"complete": true})
		}

		q, err := deps.Questions.Generate(ctx, question.Context{
			Profile:       p,
			MissingFields: p.MissingFields(),
			Completion:    p.Completion(),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to generate question: %v", err)), nil
		}

		return mcpJSON(q)
	}
}

func mcpSubmitAnswer(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}
		field := req.GetString("field", "")

		// Make sure a session exists so a bare submit_answer works too.
		if _, err := deps.Conv.Initialize(ctx, userID); err != nil {
			return mcpError(fmt.Sprintf("failed to initialize conversation: %v", err)), nil
		}

		ev, err := deps.Conv.AnswerFor(ctx, userID, answer, field)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to process answer: %v", err)), nil
		}

		out := map[string]any{
			"kind":    string(ev.Kind),
			"message": ev.Message,
			"profile": ev.Profile,
		}
		if len(ev.UpdatedFields) > 0 {
			out["updated_fields"] = ev.UpdatedFields
		}
		if ev.Question != nil {
			out["next_field"] = ev.Question.Field
		}
		return mcpJSON(out)
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		userID := strings.TrimPrefix(req.Params.URI, "intake://profile/")
		if userID == "" || userID == req.Params.URI {
			return nil, fmt.Errorf("invalid profile URI %q", req.Params.URI)
		}

		p, err := deps.Store.GetProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encoding profile: %w", err)
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

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
