package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/comigor/sentix/internal/api"
	"github.com/comigor/sentix/internal/chat"
	"github.com/comigor/sentix/internal/config"
	"github.com/comigor/sentix/internal/history"
	"github.com/comigor/sentix/internal/llm"
	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/mcpserver"
	"github.com/comigor/sentix/internal/search"
	"github.com/comigor/sentix/internal/sentiment"
	"github.com/comigor/sentix/internal/service"
)

func main() {
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol in mcp mode
	logOut := os.Stdout
	if cfg.Server.Mode == config.ModeMCP {
		logOut = os.Stderr
	}
	logger.Configure(logOut, cfg.Log.Format, cfg.Log.Level)

	if err := run(cfg); err != nil {
		logger.L.Error("sentix stopped", "error", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred closes of the search client and history backend run.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize LLM client
	llmClient := llm.NewClient(cfg.LLM)

	// Optional web search grounding
	var searcher search.Searcher
	if cfg.Search.Enabled() {
		s, err := search.Dial(ctx, cfg.Search)
		if err != nil {
			logger.L.Warn("web search unavailable; assistant runs without grounding", "error", err)
		} else {
			defer s.Close()
			searcher = s
		}
	}

	backend := history.NewBackend(cfg.History.Path)
	if c, ok := backend.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.L.Warn("history backend close error", "error", err)
			}
		}()
	}
	store := history.Open(ctx, backend, cfg.History.Key, cfg.History.Limit)
	responder := chat.NewGroundedResponder(llmClient, cfg.LLM.ChatModel, searcher, cfg.LLM.MaxSearchRounds)
	svc := service.New(
		sentiment.NewAnalyzer(llmClient, cfg.LLM),
		store,
		chat.NewManager(responder, cfg.LLM.SystemPrompt, cfg.LLM.RequestTimeout),
	)

	if cfg.Server.Mode == config.ModeMCP {
		logger.L.Info("serving MCP over stdio")
		return mcpserver.ServeStdio(svc)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L.Warn("server shutdown error", "error", err)
		}
	}()

	// Start server
	logger.L.Info("starting server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
