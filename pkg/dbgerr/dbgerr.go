// Package dbgerr names the error kinds of the debug-server failure model:
// a stable Code plus an optional wrapping Error that keeps the operation
// name and the underlying cause, in the style of
// examples/jangala-dev-devicecode-go/errcode.
package dbgerr

// Code is a stable, comparable error identifier. It implements error so a
// bare Code can be returned and compared with errors.Is without allocating
// a wrapper.
type Code string

func (c Code) Error() string { return string(c) }

const (
	// StartupFailure: bind/listen failed. Fatal to the listener that hit it,
	// but other listeners are unaffected.
	StartupFailure Code = "startup_failure"
	// ProtocolError: malformed HTTP request. Answered with 400, connection closed.
	ProtocolError Code = "protocol_error"
	// NotFound: unknown HTTP path. Answered with 404, connection closed.
	NotFound Code = "not_found"
	// TransportError: send/recv failure or client disconnect mid-stream.
	TransportError Code = "transport_error"
	// BackpressureDrop: the SPSC ring was full; the entry was silently dropped.
	BackpressureDrop Code = "backpressure_drop"
	// StateUnavailable: no motherboard loaded; encoded in the response body.
	StateUnavailable Code = "state_unavailable"
	// Unexpected: any other panic/error caught at a goroutine boundary.
	Unexpected Code = "unexpected"
)

// Error wraps a Code with the operation that produced it and, optionally,
// the lower-level cause. Only StartupFailure is expected to cross a
// goroutine boundary synchronously (back to the controller); every other
// kind is handled at the boundary where it occurs.
type Error struct {
	C   Code
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + string(e.C) + ": " + e.Err.Error()
	}
	return e.Op + ": " + string(e.C)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns e's Code so errors.As(err, &coder) style extraction works
// without a type switch at call sites.
func (e *Error) CodeOf() Code { return e.C }

// Wrap builds an *Error for op/code, keeping cause for Unwrap.
func Wrap(op string, code Code, cause error) *Error {
	return &Error{C: code, Op: op, Err: cause}
}

// Of extracts the Code from err, defaulting to Unexpected for errors that
// carry no Code of their own.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	switch v := err.(type) {
	case Code:
		return v
	case *Error:
		return v.C
	}
	type coder interface{ CodeOf() Code }
	if c, ok := err.(coder); ok {
		return c.CodeOf()
	}
	return Unexpected
}
