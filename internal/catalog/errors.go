package catalog

import (
	"errors"
	"fmt"
)

// ErrPromptNotFound indicates the tool server does not expose the requested
// prompt. Callers typically fall back to a configured default.
var ErrPromptNotFound = errors.New("prompt not found")

// RemoteError wraps a failed exchange with the tool server. The conversation
// survives these: they surface as assistant-visible text, never as a crash.
type RemoteError struct {
	Op     string // "list_tools", "call_tool", ...
	Server string // configured server name
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("tool server %s: %s: %v", e.Server, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// remoteErr builds a RemoteError for the given operation.
func remoteErr(server, op string, err error) error {
	return &RemoteError{Op: op, Server: server, Err: err}
}
