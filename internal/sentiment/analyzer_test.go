package sentiment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/sentix/internal/config"
)

type mockLLM struct {
	mu       sync.Mutex
	content  string
	err      error
	requests []openai.ChatCompletionRequest
	deadline bool
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r)
	_, m.deadline = ctx.Deadline()
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: m.content}}},
	}, nil
}

func newAnalyzer(m *mockLLM) *Analyzer {
	return NewAnalyzer(m, config.LLMConfig{Model: "gpt-test", RequestTimeout: time.Minute})
}

func TestAnalyze_Success(t *testing.T) {
	m := &mockLLM{content: lovePayload}
	r, err := newAnalyzer(m).Analyze(context.Background(), "I love this!")
	require.NoError(t, err)
	require.Equal(t, Positive, r.Sentiment)
	require.Equal(t, 92, r.Score)

	require.Len(t, m.requests, 1)
	req := m.requests[0]
	require.Equal(t, "gpt-test", req.Model)
	require.Len(t, req.Messages, 1)
	require.Contains(t, req.Messages[0].Content, `"I love this!"`)
	require.NotNil(t, req.ResponseFormat)
	require.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, req.ResponseFormat.Type)
	require.Equal(t, schemaName, req.ResponseFormat.JSONSchema.Name)
	require.True(t, req.ResponseFormat.JSONSchema.Strict)
	require.True(t, m.deadline)
}

func TestAnalyze_PromptEmbedsTextVerbatim(t *testing.T) {
	m := &mockLLM{content: lovePayload}
	text := "He said \"wow\"\nthen left 😄"
	_, err := newAnalyzer(m).Analyze(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, m.requests, 1)
	require.Equal(t,
		"Analyze the sentiment of the following tweet or text: \""+text+"\"",
		m.requests[0].Messages[0].Content)
	require.NotContains(t, m.requests[0].Messages[0].Content, `\"`)
}

func TestAnalyze_NotJSON(t *testing.T) {
	m := &mockLLM{content: "not json"}
	_, err := newAnalyzer(m).Analyze(context.Background(), "I love this!")
	require.ErrorIs(t, err, ErrAnalysisFailed)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAnalyze_ProviderError(t *testing.T) {
	m := &mockLLM{err: context.DeadlineExceeded}
	_, err := newAnalyzer(m).Analyze(context.Background(), "hello")
	require.ErrorIs(t, err, ErrAnalysisFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestAnalyze_EmptyContent(t *testing.T) {
	_, err := newAnalyzer(&mockLLM{}).Analyze(context.Background(), "hello")
	require.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestAnalyze_EmptyInputIssuesNoRequest(t *testing.T) {
	m := &mockLLM{content: lovePayload}
	_, err := newAnalyzer(m).Analyze(context.Background(), "  \n\t")
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Empty(t, m.requests)
}

func TestAnalyze_IdenticalInputsAreNotCoalesced(t *testing.T) {
	m := &mockLLM{content: lovePayload}
	a := newAnalyzer(m)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Analyze(context.Background(), "same text")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, m.requests, 4)
}
