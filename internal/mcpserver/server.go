// Package mcpserver exposes the analyzer, the history and the assistant as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/sentix/internal/chat"
	"github.com/comigor/sentix/internal/history"
	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/sentiment"
	"github.com/comigor/sentix/internal/service"
)

const version = "1.0.0"

type tools struct {
	svc *service.Service
}

// New builds an MCP server backed by svc.
func New(svc *service.Service) *server.MCPServer {
	s := server.NewMCPServer("sentix", version, server.WithToolCapabilities(false))
	t := &tools{svc: svc}

	s.AddTool(mcp.NewTool("analyze_sentiment",
		mcp.WithDescription("Classify the sentiment of a short text (e.g. a tweet) and record it in history."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to analyze")),
	), t.analyze)

	s.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List the most recent analyses, newest first."),
	), t.listHistory)

	s.AddTool(mcp.NewTool("ask_assistant",
		mcp.WithDescription("Ask the Sentix assistant a question. The conversation persists across calls."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The message to send")),
	), t.ask)

	return s
}

// ServeStdio blocks serving svc over stdin/stdout.
func ServeStdio(svc *service.Service) error {
	return server.ServeStdio(New(svc))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func (t *tools) analyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	item, err := t.svc.Analyze(ctx, text)
	if err != nil {
		logger.L.Error("mcp analyze failed", "error", err)
		return mcp.NewToolResultError(sentiment.FailureMessage), nil
	}
	return jsonResult(item)
}

func (t *tools) listHistory(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := t.svc.History().List()
	if items == nil {
		items = []history.Item{}
	}
	return jsonResult(items)
}

func (t *tools) ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	msg, err := t.svc.Chat().Open().SendTurn(ctx, text)
	if errors.Is(err, chat.ErrTurnInFlight) {
		return mcp.NewToolResultError("assistant is still responding"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatReply(msg)), nil
}

func formatReply(msg chat.Message) string {
	if len(msg.Sources) == 0 {
		return msg.Text
	}
	var b strings.Builder
	b.WriteString(msg.Text)
	b.WriteString("\n\nSources:")
	for _, s := range msg.Sources {
		fmt.Fprintf(&b, "\n- %s (%s)", s.Title, s.URI)
	}
	return b.String()
}
