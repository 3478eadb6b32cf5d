package session

import (
	"context"
	"sync"

	"github.com/dataflywheel/chatgate/internal/log"
)

// Factory builds a fully initialized session for a client ID. It is expected
// to dial the tool server, resolve the system prompt, and hand back a session
// ready to respond.
type Factory func(ctx context.Context, id string) (*Session, error)

// Registry maps client IDs to live sessions. For any ID the factory runs at
// most once at a time: concurrent callers for the same ID share one
// construction, and a failed construction leaves no entry behind.
type Registry struct {
	factory Factory
	logger  log.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	ready chan struct{} // closed when sess and err are final
	sess  *Session
	err   error
}

// NewRegistry builds an empty registry around a session factory.
func NewRegistry(factory Factory, logger log.Logger) *Registry {
	return &Registry{
		factory: factory,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// GetOrCreate returns the client's session, constructing it on first use.
// Callers arriving during construction wait for it and share the outcome.
func (r *Registry) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
			return e.sess, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e := &entry{ready: make(chan struct{})}
	r.entries[id] = e
	r.mu.Unlock()

	sess, err := r.factory(ctx, id)

	r.mu.Lock()
	if err != nil {
		// Leave no trace of the failed construction so the next attempt
		// starts fresh.
		delete(r.entries, id)
	} else {
		e.sess = sess
	}
	r.mu.Unlock()

	e.err = err
	close(e.ready)

	if err != nil {
		r.logger.Error("session construction failed", "client_id", id, "error", err)
		return nil, err
	}
	r.logger.Info("session created", "client_id", id)
	return sess, nil
}

// Lookup returns the client's session without constructing one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	<-e.ready
	if e.sess == nil {
		return nil, false
	}
	return e.sess, true
}

// Destroy removes and closes the client's session. Destroying an unknown ID
// is a no-op, so disconnect paths can call it unconditionally.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	<-e.ready
	if e.sess == nil {
		return
	}
	if err := e.sess.Close(); err != nil {
		r.logger.Warn("closing session", "client_id", id, "error", err)
	}
	r.logger.Info("session destroyed", "client_id", id)
}

// Shutdown closes every live session. The registry stays usable afterwards,
// but callers are expected to be on their way down.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for id, e := range entries {
		<-e.ready
		if e.sess == nil {
			continue
		}
		if err := e.sess.Close(); err != nil {
			r.logger.Warn("closing session", "client_id", id, "error", err)
		}
	}
	r.logger.Info("all sessions closed", "count", len(entries))
}

// Len reports the number of registered sessions, counting in-flight
// constructions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
