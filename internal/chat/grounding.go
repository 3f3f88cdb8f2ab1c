package chat

import (
	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/metrics"
)

// WebSource describes the page a grounding chunk came from.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk is one piece of retrieved evidence. Web is nil for non-web evidence.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// GroundingMetadata accompanies a reply that used search.
type GroundingMetadata struct {
	Queries []string         `json:"queries,omitempty"`
	Chunks  []GroundingChunk `json:"chunks"`
}

// ExtractSources returns the web citations of meta in order of first appearance, one per URI.
// Chunks without both a uri and a title are skipped. It returns nil when nothing qualifies.
func ExtractSources(meta *GroundingMetadata) []Source {
	if meta == nil {
		return nil
	}
	var (
		out  []Source
		seen = make(map[string]struct{}, len(meta.Chunks))
	)
	for i, chunk := range meta.Chunks {
		if chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
			logger.L.Debug("skipping grounding chunk without web source", "index", i)
			metrics.CitationChunksSkipped.Inc()
			continue
		}
		if _, dup := seen[chunk.Web.URI]; dup {
			continue
		}
		seen[chunk.Web.URI] = struct{}{}
		out = append(out, Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return out
}
