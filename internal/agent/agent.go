// Package agent adapts the Genkit LLM runtime to the gateway's
// one-question-one-answer exchange model.
//
// A single Runtime holds the Genkit instance and the tool registrations for
// the whole process. Tools are registered once at startup from the tool
// server's catalog; their handlers look up a per-session ToolInvoker from the
// request context, so every session's tool calls travel over that session's
// own connection. Each client session gets its own Adapter bound to that
// session's catalog client.
package agent

import "context"

// FallbackResponseMessage is returned when the model produces an empty
// response.
const FallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// Responder produces one reply per prompt. The gateway serializes calls per
// client, so implementations only need to be safe for sequential use.
type Responder interface {
	// Ask sends a fully assembled prompt and returns the model's final
	// text. Failures come back as *Error.
	Ask(ctx context.Context, prompt string) (string, error)

	// Close releases resources held for this session, including the tool
	// server connection.
	Close() error
}

// ToolInvoker executes a named tool with structured arguments and returns the
// textual result. *catalog.Client satisfies this.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

type invokerKey struct{}

// WithInvoker binds a session's tool invoker to the context. Tool handlers
// registered by the Runtime retrieve it with invokerFrom.
func WithInvoker(ctx context.Context, inv ToolInvoker) context.Context {
	return context.WithValue(ctx, invokerKey{}, inv)
}

func invokerFrom(ctx context.Context) (ToolInvoker, bool) {
	inv, ok := ctx.Value(invokerKey{}).(ToolInvoker)
	return inv, ok
}
