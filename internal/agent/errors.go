package agent

import "fmt"

// InitializationError reports a failure while preparing a client's agent,
// before any exchange took place. The gateway treats it differently from
// generation failures: the client receives an error frame and no session is
// retained.
type InitializationError struct {
	Stage string // "dial", "tools", "runtime"
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("agent initialization (%s): %v", e.Stage, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Error reports a failed generation attempt on an otherwise healthy session.
// The session stays usable after one of these.
type Error struct {
	Op  string // "generate"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
