package session

import (
	"errors"
	"fmt"
	"net"

	"github.com/1ureka/alclient/internal/protocol"
)

var (
	// ErrNoCredential is returned when a session is created before a
	// credential has been obtained. It is a caller sequencing bug.
	ErrNoCredential = errors.New("session: no credential (log in before creating a session)")

	ErrNoTransport = errors.New("session: nil transport")
	ErrClosed      = errors.New("session: closed")

	// ErrOutOfSequence marks a handshake packet that arrived in the wrong
	// phase. It wraps protocol.ErrProtocolViolation.
	ErrOutOfSequence = fmt.Errorf("%w: out-of-sequence handshake packet", protocol.ErrProtocolViolation)
)

// TransportError reports a failure of the underlying connection.
type TransportError struct {
	Op  string // "read", "write" or "close"
	Err error
}

func (e *TransportError) Error() string {
	return "session: transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry, i.e. the peer
// went silent for longer than the configured read timeout.
func (e *TransportError) Timeout() bool {
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}
