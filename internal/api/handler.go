package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/comigor/sentix/internal/chat"
	"github.com/comigor/sentix/internal/history"
	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/sentiment"
	"github.com/comigor/sentix/internal/service"
)

// Handler serves analysis, history and assistant endpoints.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.handleAnalyze)

	r.Get("/history", h.handleListHistory)
	r.Delete("/history", h.handleClearHistory)
	r.Get("/history/{id}", h.handleGetHistoryItem)
	r.Delete("/history/{id}", h.handleDeleteHistoryItem)

	r.Post("/chat/open", h.handleOpenChat)
	r.Get("/chat/messages", h.handleTranscript)
	r.Post("/chat/messages", h.handleSendTurn)
	r.Delete("/chat", h.handleDiscardChat)
}

// maxBodyBytes caps request bodies; inputs are short texts.
const maxBodyBytes = 64 << 10

type textRequest struct {
	Text string `json:"text"`
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload textRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return "", false
	}
	return payload.Text, strings.TrimSpace(payload.Text) != ""
}

type analyzeResponse struct {
	Result sentiment.Result `json:"result"`
	Item   history.Item     `json:"item"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	item, err := h.svc.Analyze(r.Context(), text)
	if err != nil {
		if errors.Is(err, sentiment.ErrEmptyInput) {
			respondError(w, http.StatusBadRequest, "text is required")
			return
		}
		logger.L.Error("analyze request failed", "error", err)
		respondError(w, http.StatusBadGateway, sentiment.FailureMessage)
		return
	}

	respondJSON(w, http.StatusOK, analyzeResponse{Result: item.Result, Item: item})
}

func (h *Handler) handleListHistory(w http.ResponseWriter, _ *http.Request) {
	items := h.svc.History().List()
	if items == nil {
		items = []history.Item{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetHistoryItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.svc.History().Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "history item not found")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteHistoryItem(w http.ResponseWriter, r *http.Request) {
	h.svc.History().Remove(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	h.svc.History().Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type transcriptResponse struct {
	ID       string         `json:"id"`
	State    chat.State     `json:"state"`
	Messages []chat.Message `json:"messages"`
}

func transcriptOf(s *chat.Session) transcriptResponse {
	messages := s.Transcript()
	if messages == nil {
		messages = []chat.Message{}
	}
	return transcriptResponse{ID: s.ID(), State: s.State(), Messages: messages}
}

func (h *Handler) handleOpenChat(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, transcriptOf(h.svc.Chat().Open()))
}

func (h *Handler) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	s, ok := h.svc.Chat().Current()
	if !ok {
		respondError(w, http.StatusNotFound, "no chat session")
		return
	}
	respondJSON(w, http.StatusOK, transcriptOf(s))
}

func (h *Handler) handleSendTurn(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	s := h.svc.Chat().Open()
	if _, err := s.SendTurn(r.Context(), text); err != nil {
		switch {
		case errors.Is(err, chat.ErrTurnInFlight):
			respondError(w, http.StatusConflict, "assistant is still responding")
		case errors.Is(err, chat.ErrSessionClosed):
			respondError(w, http.StatusGone, "chat session closed")
		default:
			respondError(w, http.StatusBadRequest, "text is required")
		}
		return
	}
	respondJSON(w, http.StatusOK, transcriptOf(s))
}

func (h *Handler) handleDiscardChat(w http.ResponseWriter, _ *http.Request) {
	h.svc.Chat().Discard()
	w.WriteHeader(http.StatusNoContent)
}
