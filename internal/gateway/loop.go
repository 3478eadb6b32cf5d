package gateway

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/dataflywheel/chatgate/internal/config"
	"github.com/dataflywheel/chatgate/internal/log"
	"github.com/dataflywheel/chatgate/internal/session"
)

// InitFailureMessage is the only frame a client sees when its session cannot
// be built.
const InitFailureMessage = "Error: Failed to initialize chatbot client. Please try again later."

// ThrottleMessage is sent instead of a reply when a client exceeds the
// inbound rate limit.
const ThrottleMessage = "You're sending messages too quickly. Please slow down."

// Sessions is the slice of the session registry the loop needs.
type Sessions interface {
	GetOrCreate(ctx context.Context, id string) (*session.Session, error)
	Destroy(id string)
}

// Loop drives one client connection from session setup through teardown.
// A single Loop serves every connection; per-connection state lives on the
// Run stack.
type Loop struct {
	manager  *Manager
	sessions Sessions
	welcome  string
	msgRate  rate.Limit // 0 disables throttling
	burst    int
	logger   log.Logger
}

// NewLoop wires the loop to its collaborators.
func NewLoop(manager *Manager, sessions Sessions, cfg *config.Config, logger log.Logger) *Loop {
	return &Loop{
		manager:  manager,
		sessions: sessions,
		welcome:  cfg.WelcomeMessage,
		msgRate:  rate.Limit(cfg.MessageRate),
		burst:    cfg.MessageBurst,
		logger:   logger,
	}
}

// Run owns the channel until the client disconnects or ctx is canceled. The
// sequence is fixed: register the channel, build the session, push the
// welcome frame, then exchange frames until Receive fails. All outbound
// frames go through the manager, so a loop whose channel was displaced by a
// reconnect delivers to the client's active channel, never its own stale one.
// Teardown always unregisters before destroying the session, so a Push racing
// a disconnect lands on the no-op path instead of a closing channel.
func (l *Loop) Run(ctx context.Context, id string, ch Channel) {
	defer func() {
		if err := ch.Close(); err != nil {
			l.logger.Debug("closing channel", "client_id", id, "error", err)
		}
	}()

	l.manager.Register(id, ch)
	defer func() {
		l.manager.Unregister(id, ch)
		l.sessions.Destroy(id)
	}()

	sess, err := l.sessions.GetOrCreate(ctx, id)
	if err != nil {
		l.logger.Error("refusing connection", "client_id", id, "error", err)
		_ = l.manager.Push(id, InitFailureMessage)
		return
	}

	if err := l.manager.Push(id, l.welcome); err != nil {
		l.logger.Warn("welcome push failed", "client_id", id, "error", err)
		return
	}

	var limiter *rate.Limiter
	if l.msgRate > 0 {
		burst := l.burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(l.msgRate, burst)
	}

	for {
		frame, err := ch.Receive()
		if err != nil {
			l.logger.Info("client disconnected", "client_id", id, "error", err)
			return
		}
		if ctx.Err() != nil {
			return
		}

		if limiter != nil && !limiter.Allow() {
			l.logger.Warn("throttling client", "client_id", id)
			if err := l.manager.Push(id, ThrottleMessage); err != nil {
				return
			}
			continue
		}

		l.logger.Info("received message", "client_id", id, "length", len(frame.Message))
		reply := sess.Respond(ctx, frame.Message)
		if err := l.manager.Push(id, reply); err != nil {
			l.logger.Warn("reply push failed", "client_id", id, "error", err)
			return
		}
	}
}
