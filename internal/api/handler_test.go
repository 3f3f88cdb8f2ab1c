package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/sentix/internal/chat"
	"github.com/comigor/sentix/internal/history"
	"github.com/comigor/sentix/internal/sentiment"
	"github.com/comigor/sentix/internal/service"
)

type stubAnalyzer struct {
	result sentiment.Result
	err    error
	calls  int
}

func (s *stubAnalyzer) Analyze(_ context.Context, text string) (sentiment.Result, error) {
	s.calls++
	if strings.TrimSpace(text) == "" {
		return sentiment.Result{}, sentiment.ErrEmptyInput
	}
	return s.result, s.err
}

type stubResponder struct {
	reply chat.Reply
	err   error
}

func (s stubResponder) Respond(context.Context, []openai.ChatCompletionMessage) (chat.Reply, error) {
	return s.reply, s.err
}

var loveResult = sentiment.Result{
	Sentiment:   sentiment.Positive,
	Score:       92,
	Confidence:  88,
	Explanation: "Strong affection.",
	Keywords:    []string{"love"},
	Emojis:      []string{"😄", "🎉", "✨"},
	Intensity:   sentiment.High,
}

func setupRouter(t *testing.T, a *stubAnalyzer, r chat.Responder) (http.Handler, *service.Service) {
	t.Helper()
	store := history.Open(context.Background(), history.NewMemoryBackend(), "sentix_history", 10)
	svc := service.New(a, store, chat.NewManager(r, "", time.Minute))
	return NewRouter(svc), svc
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestAnalyze_RecordsHistory(t *testing.T) {
	h, svc := setupRouter(t, &stubAnalyzer{result: loveResult}, stubResponder{})

	resp := do(t, h, http.MethodPost, "/api/analyze", map[string]string{"text": "I love this!"})
	require.Equal(t, http.StatusOK, resp.Code)

	var out struct {
		Result sentiment.Result `json:"result"`
		Item   history.Item     `json:"item"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Equal(t, loveResult, out.Result)
	require.Equal(t, "I love this!", out.Item.Text)
	require.NotEmpty(t, out.Item.ID)

	require.Equal(t, 1, svc.History().Len())
}

func TestAnalyze_EmptyTextIsNotSent(t *testing.T) {
	a := &stubAnalyzer{result: loveResult}
	h, _ := setupRouter(t, a, stubResponder{})

	resp := do(t, h, http.MethodPost, "/api/analyze", map[string]string{"text": "   "})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Zero(t, a.calls)
}

func TestAnalyze_OversizedBodyRejected(t *testing.T) {
	a := &stubAnalyzer{result: loveResult}
	h, _ := setupRouter(t, a, stubResponder{})

	resp := do(t, h, http.MethodPost, "/api/analyze", map[string]string{"text": strings.Repeat("a", maxBodyBytes+1)})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Zero(t, a.calls)
}

func TestAnalyze_FailureIsGenericAndNotRecorded(t *testing.T) {
	err := errors.Join(sentiment.ErrAnalysisFailed, errors.New("upstream 500: secret stack trace"))
	h, svc := setupRouter(t, &stubAnalyzer{err: err}, stubResponder{})

	resp := do(t, h, http.MethodPost, "/api/analyze", map[string]string{"text": "I love this!"})
	require.Equal(t, http.StatusBadGateway, resp.Code)
	require.Contains(t, resp.Body.String(), sentiment.FailureMessage)
	require.NotContains(t, resp.Body.String(), "secret")
	require.Zero(t, svc.History().Len())
}

func TestHistoryEndpoints(t *testing.T) {
	h, svc := setupRouter(t, &stubAnalyzer{result: loveResult}, stubResponder{})
	ctx := context.Background()
	first := svc.History().Record(ctx, loveResult, "one")
	svc.History().Record(ctx, loveResult, "two")

	resp := do(t, h, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var items []history.Item
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	require.Len(t, items, 2)
	require.Equal(t, "two", items[0].Text)

	resp = do(t, h, http.MethodGet, "/api/history/"+first.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"text":"one"`)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/history/nope", nil).Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/history/nope", nil).Code)
	require.Equal(t, 2, svc.History().Len())

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/history/"+first.ID, nil).Code)
	require.Equal(t, 1, svc.History().Len())

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/history", nil).Code)
	resp = do(t, h, http.MethodGet, "/api/history", nil)
	require.JSONEq(t, `[]`, resp.Body.String())
}

func TestChatEndpoints(t *testing.T) {
	responder := stubResponder{reply: chat.Reply{
		Text: "Trending up.",
		Grounding: &chat.GroundingMetadata{Chunks: []chat.GroundingChunk{
			{Web: &chat.WebSource{URI: "https://news.example", Title: "News"}},
			{},
		}},
	}}
	h, _ := setupRouter(t, &stubAnalyzer{}, responder)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/chat/messages", nil).Code)

	resp := do(t, h, http.MethodPost, "/api/chat/open", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var opened struct {
		ID       string         `json:"id"`
		State    string         `json:"state"`
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &opened))
	require.NotEmpty(t, opened.ID)
	require.Equal(t, "Idle", opened.State)
	require.Empty(t, opened.Messages)

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/chat/messages", map[string]string{"text": ""}).Code)

	resp = do(t, h, http.MethodPost, "/api/chat/messages", map[string]string{"text": "What's trending?"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{
		"id": "`+opened.ID+`",
		"state": "Idle",
		"messages": [
			{"role": "user", "text": "What's trending?"},
			{"role": "assistant", "text": "Trending up.", "sources": [{"uri": "https://news.example", "title": "News"}]}
		]
	}`, resp.Body.String())

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/chat", nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/chat/messages", nil).Code)
}

func TestChat_FailureReturnsFallback(t *testing.T) {
	h, _ := setupRouter(t, &stubAnalyzer{}, stubResponder{err: errors.New("dial tcp: timeout")})

	resp := do(t, h, http.MethodPost, "/api/chat/messages", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), chat.FallbackMessage)
	require.NotContains(t, resp.Body.String(), "dial tcp")
	require.NotContains(t, resp.Body.String(), "sources")
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := setupRouter(t, &stubAnalyzer{}, stubResponder{})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)

	resp := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "go_goroutines")
}
