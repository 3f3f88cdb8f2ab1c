// Package search gives the assistant a live web search capability. Results carry the web
// source descriptor the chat session turns into citations.
package search

import (
	"context"
	"encoding/json"
	"strings"
)

// Result is one search hit. URI or Title may be empty when the backend omits them.
type Result struct {
	URI     string `json:"uri"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
}

// Searcher runs a web search for query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

type rawHit struct {
	URI         string `json:"uri"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	Title       string `json:"title"`
	Name        string `json:"name"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

func (h rawHit) result() Result {
	return Result{
		URI:     firstNonEmpty(h.URI, h.URL, h.Link),
		Title:   firstNonEmpty(h.Title, h.Name),
		Snippet: firstNonEmpty(h.Snippet, h.Description, h.Content),
	}
}

// ParseResults decodes a search tool payload: either a JSON array of hits or an object with a
// "results" (or "web") array. Text that is not JSON yields a single snippet-only result so the
// model still sees it.
func ParseResults(text string) []Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var hits []rawHit
	if err := json.Unmarshal([]byte(text), &hits); err != nil {
		var wrapped struct {
			Results []rawHit `json:"results"`
			Web     []rawHit `json:"web"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return []Result{{Snippet: text}}
		}
		hits = append(wrapped.Results, wrapped.Web...)
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.result())
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
