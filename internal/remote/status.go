package remote

import (
	"errors"
	"fmt"
)

// ErrUnavailable reports that a node could not be reached or a session could
// not be borrowed within the configured wait. It is never retried inside the
// bridge; callers may retry against another node or later.
var ErrUnavailable = errors.New("remote: node unavailable")

// StatusCode enumerates the remote store's status results that the bridge
// distinguishes. Anything else is treated as a generic request rejection.
type StatusCode int

const (
	StatusOK StatusCode = iota
	// StatusServerUnavailable: the node is down or unreachable.
	StatusServerUnavailable
	// StatusAuthExpired: the session's administrative authentication lapsed.
	StatusAuthExpired
	// StatusConnectionReset: the transport under the session was torn down.
	StatusConnectionReset
	// StatusInvalidUID: a store or delete referenced an unknown event UID.
	StatusInvalidUID
	// StatusCannotBookAttendee: the store was rejected for an attendee. The
	// remote store raises this same code both when the attendee declines
	// invitations and when a resource in the attendee list is already
	// reserved; the two causes are indistinguishable at this layer.
	StatusCannotBookAttendee
	// StatusUnknownIdentity: identity switch targeted an unknown login.
	StatusUnknownIdentity
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "OK"
	case StatusServerUnavailable:
		return "SERVER_UNAVAILABLE"
	case StatusAuthExpired:
		return "AUTH_EXPIRED"
	case StatusConnectionReset:
		return "CONNECTION_RESET"
	case StatusInvalidUID:
		return "INVALID_UID"
	case StatusCannotBookAttendee:
		return "CANNOT_BOOK_ATTENDEE"
	case StatusUnknownIdentity:
		return "UNKNOWN_IDENTITY"
	default:
		return fmt.Sprintf("STATUS_%d", int(c))
	}
}

// StatusError is a typed failure from the remote store.
type StatusError struct {
	Code StatusCode
	Op   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s failed with status %s", e.Op, e.Code)
}

// SessionFault reports whether the status invalidates the session itself, as
// opposed to rejecting only the request that produced it.
func (e *StatusError) SessionFault() bool {
	switch e.Code {
	case StatusServerUnavailable, StatusAuthExpired, StatusConnectionReset:
		return true
	default:
		return false
	}
}

// IsSessionFault reports whether err carries a session-level remote status.
func IsSessionFault(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.SessionFault()
}
