package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/comigor/sentix/internal/llm"
	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/search"
)

const webSearchTool = "web_search"

// ErrSearchRoundsExceeded is returned when the model keeps requesting searches after the budget is spent.
var ErrSearchRoundsExceeded = errors.New("exceeded maximum search rounds")

// Reply is the provider's answer to one turn.
type Reply struct {
	Text      string
	Grounding *GroundingMetadata
}

// Responder answers a conversation whose last message is the new user turn.
type Responder interface {
	Respond(ctx context.Context, conversation []openai.ChatCompletionMessage) (Reply, error)
}

// GroundedResponder calls the chat model and, when a Searcher is configured, lets the model
// decide per turn whether to call web_search. Every search hit becomes a grounding chunk.
type GroundedResponder struct {
	llmClient llm.Client
	model     string
	searcher  search.Searcher
	maxRounds int
}

// NewGroundedResponder creates a responder. A nil searcher disables grounding.
func NewGroundedResponder(llmClient llm.Client, model string, searcher search.Searcher, maxRounds int) *GroundedResponder {
	if maxRounds < 1 {
		maxRounds = 1
	}
	return &GroundedResponder{
		llmClient: llmClient,
		model:     model,
		searcher:  searcher,
		maxRounds: maxRounds,
	}
}

func (g *GroundedResponder) tools() []openai.Tool {
	if g.searcher == nil {
		return nil
	}
	return []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        webSearchTool,
			Description: "Search the web for recent news, trends and events. Use it when the answer depends on up-to-date information.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"query": {Type: jsonschema.String, Description: "The search query"},
				},
				Required: []string{"query"},
			},
		},
	}}
}

// Respond runs the turn. The conversation slice is not modified.
func (g *GroundedResponder) Respond(ctx context.Context, conversation []openai.ChatCompletionMessage) (Reply, error) {
	messages := slices.Clone(conversation)
	var grounding *GroundingMetadata

	for round := 0; ; round++ {
		req := openai.ChatCompletionRequest{
			Model:    g.model,
			Messages: messages,
		}
		// once the budget is spent the model has to answer from what it already has
		if round < g.maxRounds {
			req.Tools = g.tools()
		}

		resp, err := g.llmClient.CreateChatCompletion(ctx, req)
		if err != nil {
			return Reply{}, err
		}
		msg, err := llm.FirstMessage(resp)
		if err != nil {
			return Reply{}, err
		}
		if len(msg.ToolCalls) == 0 {
			return Reply{Text: msg.Content, Grounding: grounding}, nil
		}
		if round >= g.maxRounds || g.searcher == nil {
			return Reply{}, ErrSearchRoundsExceeded
		}

		if grounding == nil {
			grounding = &GroundingMetadata{}
		}
		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    g.runTool(ctx, tc, grounding),
				ToolCallID: tc.ID,
				Name:       tc.Function.Name,
			})
		}
	}
}

// runTool executes one tool call and returns the content fed back to the model. Failures are
// reported to the model rather than aborting the turn.
func (g *GroundedResponder) runTool(ctx context.Context, tc openai.ToolCall, grounding *GroundingMetadata) string {
	if tc.Function.Name != webSearchTool {
		logger.L.Warn("model requested unknown tool", "tool", tc.Function.Name)
		return "Error: unknown tool " + tc.Function.Name
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil || strings.TrimSpace(args.Query) == "" {
		logger.L.Warn("invalid web_search arguments", "arguments", tc.Function.Arguments, "error", err)
		return "Error: web_search requires a non-empty query"
	}

	results, err := g.searcher.Search(ctx, args.Query)
	if err != nil {
		logger.L.Warn("web search failed", "query", args.Query, "error", err)
		return "Error: search is unavailable right now"
	}
	logger.L.Debug("web search completed", "query", args.Query, "results", len(results))

	grounding.Queries = append(grounding.Queries, args.Query)
	for _, r := range results {
		chunk := GroundingChunk{}
		if r.URI != "" || r.Title != "" {
			chunk.Web = &WebSource{URI: r.URI, Title: r.Title}
		}
		grounding.Chunks = append(grounding.Chunks, chunk)
	}

	out, err := json.Marshal(results)
	if err != nil {
		return fmt.Sprintf("Error: could not format results: %v", err)
	}
	return string(out)
}
