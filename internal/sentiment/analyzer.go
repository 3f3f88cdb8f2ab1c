package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/sentix/internal/config"
	"github.com/comigor/sentix/internal/llm"
	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/metrics"
)

var (
	// ErrAnalysisFailed wraps every failure of an analysis request, including malformed output.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrEmptyInput is returned for blank text; no request is issued.
	ErrEmptyInput = errors.New("empty input")
)

// FailureMessage is the only failure text shown to end users.
const FailureMessage = "Analysis module failed to initialize. Please verify connectivity."

const promptTemplate = "Analyze the sentiment of the following tweet or text: \"%s\""

// Analyzer issues one structured-output request per call. It holds no per-call state and is
// safe for concurrent use; identical inputs are never coalesced.
type Analyzer struct {
	llmClient llm.Client
	model     string
	timeout   time.Duration
}

// NewAnalyzer creates an Analyzer using cfg.Model and cfg.RequestTimeout.
func NewAnalyzer(llmClient llm.Client, cfg config.LLMConfig) *Analyzer {
	return &Analyzer{
		llmClient: llmClient,
		model:     cfg.Model,
		timeout:   cfg.RequestTimeout,
	}
}

// Analyze classifies text. Errors always satisfy errors.Is(err, ErrAnalysisFailed); provider
// output that does not match the schema additionally satisfies ErrMalformedResponse.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}

	callCtx, cancel := llm.CallContext(ctx, a.timeout)
	defer cancel()

	resp, err := a.llmClient.CreateChatCompletion(callCtx, a.request(text))
	if err != nil {
		logger.L.Error("sentiment request failed", "error", err)
		metrics.Analyses.WithLabelValues(metrics.OutcomeFailed).Inc()
		return Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	msg, err := llm.FirstMessage(resp)
	if err != nil {
		metrics.Analyses.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return Result{}, fmt.Errorf("%w: %w: %w", ErrAnalysisFailed, ErrMalformedResponse, err)
	}

	result, err := Parse(msg.Content)
	if err != nil {
		logger.L.Warn("sentiment response rejected", "error", err, "content", msg.Content)
		metrics.Analyses.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return Result{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	logger.L.Debug("sentiment analyzed", "sentiment", result.Sentiment, "score", result.Score, "confidence", result.Confidence)
	metrics.Analyses.WithLabelValues(metrics.OutcomeOK).Inc()
	return result, nil
}

func (a *Analyzer) request(text string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        schemaName,
				Description: "Sentiment classification of a short text",
				Schema:      Schema(),
				Strict:      true,
			},
		},
	}
}
