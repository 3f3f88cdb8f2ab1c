// Package service ties the analyzer, the history store and the assistant together for the
// HTTP and MCP surfaces.
package service

import (
	"context"

	"github.com/comigor/sentix/internal/chat"
	"github.com/comigor/sentix/internal/history"
	"github.com/comigor/sentix/internal/sentiment"
)

// Analyzer produces one sentiment result per call.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (sentiment.Result, error)
}

type Service struct {
	analyzer Analyzer
	history  *history.Store
	chat     *chat.Manager
}

func New(analyzer Analyzer, store *history.Store, chatManager *chat.Manager) *Service {
	return &Service{
		analyzer: analyzer,
		history:  store,
		chat:     chatManager,
	}
}

// Analyze classifies text and records it in history. Nothing is recorded on failure.
func (s *Service) Analyze(ctx context.Context, text string) (history.Item, error) {
	result, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return history.Item{}, err
	}
	return s.history.Record(ctx, result, text), nil
}

func (s *Service) History() *history.Store { return s.history }

func (s *Service) Chat() *chat.Manager { return s.chat }
