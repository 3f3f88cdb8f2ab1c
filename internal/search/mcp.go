package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/comigor/sentix/internal/config"
	"github.com/comigor/sentix/internal/logger"
)

// MCPClient is the subset of the mcp-go client the searcher relies on.
type MCPClient interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// MCPSearcher calls a search tool exposed by an MCP server.
type MCPSearcher struct {
	client MCPClient
	tool   string
}

// NewMCPSearcher wraps an already initialized MCP client.
func NewMCPSearcher(c MCPClient, tool string) *MCPSearcher {
	return &MCPSearcher{client: c, tool: tool}
}

// Dial creates, starts and initializes the MCP client described by cfg.
func Dial(ctx context.Context, cfg config.SearchConfig) (*MCPSearcher, error) {
	var (
		mcpC *client.Client
		err  error
	)
	switch cfg.Type {
	case config.ClientTypeSSE:
		var sseOpts []transport.ClientOption
		if len(cfg.Headers) > 0 {
			sseOpts = append(sseOpts, transport.WithHeaders(cfg.Headers))
		}
		mcpC, err = client.NewSSEMCPClient(cfg.URL, sseOpts...)
	case config.ClientTypeStreamableHTTP:
		var httpOpts []transport.StreamableHTTPCOption
		if len(cfg.Headers) > 0 {
			httpOpts = append(httpOpts, transport.WithHTTPHeaders(cfg.Headers))
		}
		mcpC, err = client.NewStreamableHttpClient(cfg.URL, httpOpts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		mcpC, err = client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	default:
		return nil, fmt.Errorf("unsupported search transport %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}

	// stdio clients start their transport on creation
	if cfg.Type != config.ClientTypeStdio {
		if err := mcpC.Start(ctx); err != nil {
			closeQuietly(mcpC)
			return nil, fmt.Errorf("start search client: %w", err)
		}
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "sentix", Version: "1.0.0"},
			Capabilities:    mcp.ClientCapabilities{},
		},
	}
	if _, err := mcpC.Initialize(ctx, initReq); err != nil {
		closeQuietly(mcpC)
		return nil, fmt.Errorf("initialize search client: %w", err)
	}

	tools, err := mcpC.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		logger.L.Warn("failed to list search server tools", "error", err)
	} else if !hasTool(tools, cfg.Tool) {
		closeQuietly(mcpC)
		return nil, fmt.Errorf("search server does not expose tool %q", cfg.Tool)
	}

	logger.L.Info("search backend initialized", "type", cfg.Type, "tool", cfg.Tool)
	return NewMCPSearcher(mcpC, cfg.Tool), nil
}

func hasTool(tools *mcp.ListToolsResult, name string) bool {
	if tools == nil {
		return false
	}
	for _, t := range tools.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

func closeQuietly(c MCPClient) {
	if cerr := c.Close(); cerr != nil {
		logger.L.Warn("search client close error", "error", cerr)
	}
}

// Search calls the tool with {"query": query} and parses every text block of the result.
func (s *MCPSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      s.tool,
			Arguments: map[string]any{"query": query},
		},
	}
	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", s.tool, err)
	}
	if res == nil {
		return nil, errors.New("search tool returned no result")
	}

	var out []Result
	for _, item := range res.Content {
		text, ok := item.(mcp.TextContent)
		if !ok {
			continue
		}
		if res.IsError {
			return nil, fmt.Errorf("search tool error: %s", text.Text)
		}
		out = append(out, ParseResults(text.Text)...)
	}
	if res.IsError {
		return nil, errors.New("search tool error")
	}
	return out, nil
}

func (s *MCPSearcher) Close() error {
	return s.client.Close()
}
