// Package chat implements the one-conversation-per-user chat with the AI bot:
// persist the user's turn, ask the relay for a reply, persist the bot's turn.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/UkralStul/chirp/internal/domain"
	"github.com/UkralStul/chirp/internal/realtime"
)

const (
	// SessionSuffix is appended to the user id to form the session id.
	SessionSuffix = "_ai"

	// BotID is the sender id of every bot message.
	BotID = "bot"

	// BotLabel is the sender label of every bot message.
	BotLabel = "AI Bot"

	// FailureReply is persisted as the bot's turn when the relay fails.
	FailureReply = "⚠️ Failed to get reply from bot."

	// FallbackReply is persisted when the relay answers with an empty reply.
	FallbackReply = "⚠️ Sorry, I couldn't generate a response."

	// TypingIndicator is shown while a reply is pending.
	TypingIndicator = "AI is typing..."
)

// SessionID derives the single chat session of a user.
func SessionID(userID string) string {
	return userID + SessionSuffix
}

// State is the phase of a chat session.
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting-reply"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "sending":
		*s = StateSending
	case "awaiting-reply":
		*s = StateAwaitingReply
	default:
		return fmt.Errorf("unknown chat state %q", text)
	}
	return nil
}

// Snapshot is the full ordered state of a session, pushed on every change.
type Snapshot struct {
	SessionID string                `json:"sessionId"`
	Messages  []*domain.ChatMessage `json:"messages"`
	State     State                 `json:"state"`
	Typing    string                `json:"typing,omitempty"`
}

// Replier answers a prompt. relay.Service satisfies it.
type Replier interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// MessageStore is the slice of the document store the chat needs.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	GetMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error)
}

// Service runs the send/receive flow and fans out snapshots.
type Service struct {
	store   MessageStore
	replier Replier
	hub     *realtime.Hub[Snapshot]
	logger  *slog.Logger

	mu       sync.Mutex
	sending  map[string]int
	awaiting map[string]int

	// pubMu keeps snapshot reads and publishes in the same order.
	pubMu sync.Mutex
}

func NewService(store MessageStore, replier Replier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		replier:  replier,
		hub:      realtime.NewHub[Snapshot](),
		logger:   logger,
		sending:  make(map[string]int),
		awaiting: make(map[string]int),
	}
}

// Send appends the user's message, then exactly one bot message: the reply,
// or FailureReply if the relay failed. Both messages are returned in order.
func (s *Service) Send(ctx context.Context, id domain.Identity, text string) ([]*domain.ChatMessage, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}

	sid := SessionID(id.UserID)
	// Both turns are stored even if the caller goes away mid-send.
	ctx = context.WithoutCancel(ctx)

	s.enter(sid, s.sending)
	s.publish(ctx, sid)

	userMsg, err := s.store.AppendMessage(ctx, &domain.ChatMessage{
		SessionID: sid,
		Sender:    id.Label(),
		SenderID:  id.UserID,
		Text:      text,
	})
	if err != nil {
		s.leave(sid, s.sending)
		s.publish(ctx, sid)
		return nil, fmt.Errorf("save user message: %w", err)
	}

	s.move(sid, s.sending, s.awaiting)
	s.publish(ctx, sid)

	reply, err := s.replier.Reply(ctx, text)
	switch {
	case err != nil:
		s.logger.Error("AI error", "session", sid, "error", err)
		reply = FailureReply
	case strings.TrimSpace(reply) == "":
		reply = FallbackReply
	}

	botMsg, err := s.store.AppendMessage(ctx, &domain.ChatMessage{
		SessionID: sid,
		Sender:    BotLabel,
		SenderID:  BotID,
		Text:      reply,
	})
	s.leave(sid, s.awaiting)
	s.publish(ctx, sid)
	if err != nil {
		return []*domain.ChatMessage{userMsg}, fmt.Errorf("save bot message: %w", err)
	}

	return []*domain.ChatMessage{userMsg, botMsg}, nil
}

// History returns the session's messages, oldest first.
func (s *Service) History(ctx context.Context, id domain.Identity) ([]*domain.ChatMessage, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.GetMessages(ctx, SessionID(id.UserID))
}

// Subscribe streams snapshots of the user's session until ctx is done.
// The current snapshot is delivered right away.
func (s *Service) Subscribe(ctx context.Context, id domain.Identity) (<-chan Snapshot, error) {
	if id.Anonymous() {
		return nil, domain.ErrUnauthenticated
	}
	sid := SessionID(id.UserID)
	ch := s.hub.Subscribe(ctx, sid)
	s.publish(ctx, sid)
	return ch, nil
}

// State returns the current phase of a user's session.
func (s *Service) State(userID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(SessionID(userID))
}

func (s *Service) stateLocked(sid string) State {
	switch {
	case s.awaiting[sid] > 0:
		return StateAwaitingReply
	case s.sending[sid] > 0:
		return StateSending
	default:
		return StateIdle
	}
}

func (s *Service) enter(sid string, phase map[string]int) {
	s.mu.Lock()
	phase[sid]++
	s.mu.Unlock()
}

func (s *Service) leave(sid string, phase map[string]int) {
	s.mu.Lock()
	if phase[sid]--; phase[sid] <= 0 {
		delete(phase, sid)
	}
	s.mu.Unlock()
}

func (s *Service) move(sid string, from, to map[string]int) {
	s.mu.Lock()
	if from[sid]--; from[sid] <= 0 {
		delete(from, sid)
	}
	to[sid]++
	s.mu.Unlock()
}

func (s *Service) publish(ctx context.Context, sid string) {
	if s.hub.Subscribers(sid) == 0 {
		return
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	msgs, err := s.store.GetMessages(ctx, sid)
	if err != nil {
		s.logger.Error("load chat snapshot", "session", sid, "error", err)
		return
	}

	s.mu.Lock()
	state := s.stateLocked(sid)
	s.mu.Unlock()

	snap := Snapshot{SessionID: sid, Messages: msgs, State: state}
	if state != StateIdle {
		snap.Typing = TypingIndicator
	}
	s.hub.Publish(sid, snap)
}
