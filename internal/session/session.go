// Package session holds per-client conversation state. A Session serializes
// the exchanges of one client and records their history; the Registry maps
// client IDs to live sessions and guarantees at most one construction per ID.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dataflywheel/chatgate/internal/agent"
	"github.com/dataflywheel/chatgate/internal/log"
)

// Message roles as stored in history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one client's conversation. All methods are safe for concurrent
// use; Respond holds the lock for the whole exchange, so a client's
// exchanges are strictly ordered.
type Session struct {
	id           string
	systemPrompt string
	responder    agent.Responder
	timeout      time.Duration // 0 disables
	logger       log.Logger

	mu      sync.Mutex
	history []Message
}

// New builds a session around an initialized responder.
func New(id, systemPrompt string, responder agent.Responder, timeout time.Duration, logger log.Logger) *Session {
	return &Session{
		id:           id,
		systemPrompt: systemPrompt,
		responder:    responder,
		timeout:      timeout,
		logger:       logger,
	}
}

// ID returns the client identifier this session belongs to.
func (s *Session) ID() string { return s.id }

// Respond records the user's message, runs one exchange, records the reply,
// and returns it. Generation failures do not escape: they are recorded and
// returned as an assistant message so the conversation can continue.
func (s *Session) Respond(ctx context.Context, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Message{Role: RoleUser, Content: text})

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := s.systemPrompt + "\n\nUser Query: " + text
	reply, err := s.responder.Ask(ctx, prompt)
	if err != nil {
		s.logger.Error("exchange failed", "client_id", s.id, "error", err)
		reply = fmt.Sprintf("Error processing your request: %v", err)
	}

	s.history = append(s.history, Message{Role: RoleAssistant, Content: reply})
	return reply
}

// History returns a snapshot of the conversation so far.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// ResetHistory discards the conversation while keeping the session, its
// responder, and its system prompt.
func (s *Session) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.logger.Info("history reset", "client_id", s.id)
}

// Close releases the session's responder and, with it, the session's tool
// server connection.
func (s *Session) Close() error {
	return s.responder.Close()
}
