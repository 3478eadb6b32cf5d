// Package gateway runs the duplex messaging side of the service. A Channel
// abstracts one client's bidirectional frame stream (WebSocket in
// production, fakes in tests), the Manager tracks which channel is active
// per client, and the Loop drives a connection from registration through
// teardown.
package gateway

import (
	"sync"

	"github.com/dataflywheel/chatgate/internal/log"
)

// SenderBot marks outbound frames so clients can distinguish echoes from
// replies.
const SenderBot = "bot"

// Frame is one message on the wire. Inbound frames carry only Message;
// outbound frames also carry Sender.
type Frame struct {
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

// Channel is one client's duplex frame stream. Receive blocks until the next
// inbound frame or a terminal error. Implementations must allow Send and
// Receive from different goroutines, and Close must unblock a pending
// Receive.
type Channel interface {
	Receive() (Frame, error)
	Send(Frame) error
	Close() error
}

// Manager tracks the active channel per client. When a client connects twice
// the later channel wins; pushes to unknown clients are dropped silently.
type Manager struct {
	logger log.Logger

	mu       sync.Mutex
	channels map[string]Channel
}

// NewManager builds an empty channel manager.
func NewManager(logger log.Logger) *Manager {
	return &Manager{
		logger:   logger,
		channels: make(map[string]Channel),
	}
}

// Register makes ch the client's active channel, displacing any previous one.
func (m *Manager) Register(id string, ch Channel) {
	m.mu.Lock()
	m.channels[id] = ch
	m.mu.Unlock()
	m.logger.Info("channel registered", "client_id", id)
}

// Unregister removes the client's channel, but only if ch is still the active
// one. A stale connection tearing down after being displaced must not take
// the new channel with it.
func (m *Manager) Unregister(id string, ch Channel) {
	m.mu.Lock()
	removed := m.channels[id] == ch
	if removed {
		delete(m.channels, id)
	}
	m.mu.Unlock()
	if removed {
		m.logger.Info("channel unregistered", "client_id", id)
	}
}

// Push sends a bot frame to the client's active channel. Clients without one
// are skipped without error; a Send failure is returned so the caller can
// tear the connection down.
func (m *Manager) Push(id, message string) error {
	m.mu.Lock()
	ch, ok := m.channels[id]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if err := ch.Send(Frame{Message: message, Sender: SenderBot}); err != nil {
		m.logger.Warn("push failed", "client_id", id, "error", err)
		return err
	}
	return nil
}

// Active reports whether the client currently has a registered channel.
func (m *Manager) Active(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.channels[id]
	return ok
}
