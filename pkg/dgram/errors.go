package dgram

import (
	"errors"
	"syscall"
)

type Kind int

const (
	// KindSocketClosed: the handle has no open descriptor.
	KindSocketClosed Kind = iota + 1
	// KindSocketError: the OS rejected a call; Err holds the errno.
	KindSocketError
	// KindNullPayload: a required datagram or buffer was nil.
	KindNullPayload
	// KindOutOfMemory: the oversized-payload buffer could not be allocated.
	KindOutOfMemory
	// KindInvalidArgument: offset/length do not fit the caller's buffer.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindSocketClosed:
		return "socket_closed"
	case KindSocketError:
		return "socket_error"
	case KindNullPayload:
		return "null_payload"
	case KindOutOfMemory:
		return "out_of_memory"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

const msgSocketClosed = "Socket closed"

// Error is returned by every Socket operation that fails.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "bind" or "receive".
	Op  string
	Msg string
	// Err is the underlying cause, usually a syscall.Errno.
	Err error
}

func (e *Error) Error() string {
	s := "dgram: "
	if e.Op != "" {
		s += e.Op + ": "
	}
	s += e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind-only sentinels below, so errors.Is(err, ErrSocketClosed)
// holds for any closed-socket failure regardless of the operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// Errno returns the OS error number behind e, or 0.
func (e *Error) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

var (
	ErrSocketClosed    = &Error{Kind: KindSocketClosed, Msg: msgSocketClosed}
	ErrSocketError     = &Error{Kind: KindSocketError, Msg: "socket error"}
	ErrNullPayload     = &Error{Kind: KindNullPayload, Msg: "null payload"}
	ErrOutOfMemory     = &Error{Kind: KindOutOfMemory, Msg: "out of memory"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Msg: "invalid argument"}
)

// KindOf returns the Kind of err, or 0 when err is not a dgram error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
