package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/sentix/internal/llm"
	"github.com/comigor/sentix/internal/logger"
	"github.com/comigor/sentix/internal/metrics"
)

// State of a Session.
type State string

const (
	StateUninitialized    State = "Uninitialized"
	StateIdle             State = "Idle"
	StateAwaitingResponse State = "AwaitingResponse"
	StateClosed           State = "Closed"
)

type trigger string

const (
	triggerOpen    trigger = "Open"
	triggerSend    trigger = "Send"
	triggerResolve trigger = "Resolve"
	triggerClose   trigger = "Close"
)

var (
	// ErrChatTurnFailed marks a provider failure during a turn. It is recovered into FallbackMessage.
	ErrChatTurnFailed = errors.New("chat turn failed")
	// ErrTurnInFlight is returned when a turn is sent while another one is awaiting its response.
	ErrTurnInFlight = errors.New("a turn is already awaiting a response")
	// ErrSessionClosed is returned for turns on a discarded session.
	ErrSessionClosed = errors.New("chat session closed")
	// ErrEmptyInput is returned for blank text; nothing is appended or sent.
	ErrEmptyInput = errors.New("empty message")
)

// FallbackMessage replaces the assistant reply when a turn fails.
const FallbackMessage = "I'm having trouble connecting to the intelligence cluster. Please verify your connection."

// DefaultSystemPrompt is the assistant persona used when none is configured.
const DefaultSystemPrompt = "You are the Sentix Intelligence Assistant. You are an expert in social media trends, " +
	"linguistic analysis, and sentiment patterns. You have access to a web search tool to provide real-time, " +
	"up-to-date information and recent news. When users ask about trends or recent events, use your search tool. " +
	"Help users interpret their results and provide deep insights. Keep responses premium, professional, and concise."

// Session is a conversation handle: an id, the provider context mirrored locally and the
// visible transcript. Turns are serialized; a second SendTurn while one is in flight fails
// with ErrTurnInFlight instead of queueing.
type Session struct {
	id        string
	responder Responder
	timeout   time.Duration

	mu         sync.Mutex
	fsm        *stateless.StateMachine
	context    []openai.ChatCompletionMessage
	transcript []Message
}

// NewSession creates a live session configured with systemPrompt.
func NewSession(responder Responder, systemPrompt string, timeout time.Duration) *Session {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	fsm := stateless.NewStateMachine(StateUninitialized)
	fsm.Configure(StateUninitialized).
		Permit(triggerOpen, StateIdle)
	fsm.Configure(StateIdle).
		Permit(triggerSend, StateAwaitingResponse).
		Permit(triggerClose, StateClosed)
	fsm.Configure(StateAwaitingResponse).
		Permit(triggerResolve, StateIdle).
		Permit(triggerClose, StateClosed)
	fsm.Configure(StateClosed)

	s := &Session{
		id:        uuid.NewString(),
		responder: responder,
		timeout:   timeout,
		fsm:       fsm,
		context: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
	}
	if err := fsm.Fire(triggerOpen); err != nil {
		// unreachable with the configuration above
		panic(fmt.Sprintf("chat: open session: %v", err))
	}
	logger.L.Info("chat session opened", "session", s.id)
	return s
}

func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	return s.fsm.MustState().(State)
}

// Transcript returns a copy of the visible messages.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// SendTurn appends text to the transcript right away, asks the provider for a reply using the
// accumulated context and appends the reply. Provider failures are not returned: the reply is
// FallbackMessage and the session stays usable. The provider context only grows on success.
func (s *Session) SendTurn(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyInput
	}

	s.mu.Lock()
	if err := s.fsm.Fire(triggerSend); err != nil {
		state := s.state()
		s.mu.Unlock()
		metrics.ChatTurns.WithLabelValues(metrics.OutcomeRejected).Inc()
		if state == StateClosed {
			return Message{}, ErrSessionClosed
		}
		return Message{}, ErrTurnInFlight
	}
	s.transcript = append(s.transcript, Message{Role: RoleUser, Text: text})
	conversation := append(slices.Clone(s.context), openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	s.mu.Unlock()

	callCtx, cancel := llm.CallContext(ctx, s.timeout)
	reply, err := s.responder.Respond(callCtx, conversation)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state() == StateClosed {
		return Message{}, ErrSessionClosed
	}

	var msg Message
	if err != nil {
		logger.L.Error("chat turn failed", "session", s.id, "error", fmt.Errorf("%w: %w", ErrChatTurnFailed, err))
		metrics.ChatTurns.WithLabelValues(metrics.OutcomeFailed).Inc()
		msg = Message{Role: RoleAssistant, Text: FallbackMessage}
	} else {
		s.context = append(conversation, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: reply.Text,
		})
		msg = Message{Role: RoleAssistant, Text: reply.Text, Sources: ExtractSources(reply.Grounding)}
		metrics.ChatTurns.WithLabelValues(metrics.OutcomeOK).Inc()
	}
	s.transcript = append(s.transcript, msg)

	if err := s.fsm.Fire(triggerResolve); err != nil {
		logger.L.Warn("chat session resolve failed", "session", s.id, "error", err)
	}
	return msg, nil
}

// Close drops the session. Later turns fail with ErrSessionClosed; a reply arriving for an
// in-flight turn is discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state() == StateClosed {
		return
	}
	if err := s.fsm.Fire(triggerClose); err != nil {
		logger.L.Warn("chat session close failed", "session", s.id, "error", err)
		return
	}
	s.transcript = nil
	s.context = nil
	logger.L.Info("chat session closed", "session", s.id)
}
