// Package keepalive answers liveness probes from the peer. It holds no
// handshake state and can be used in any session phase.
package keepalive

import (
	"sync/atomic"
	"time"

	"github.com/1ureka/alclient/internal/protocol"
)

// Sender writes one raw text frame to the peer.
type Sender interface {
	Send(frame string) error
}

// Responder replies to every Ping with a Pong through its Sender.
type Responder struct {
	sender   Sender
	answered atomic.Uint64
	lastPing atomic.Int64 // unix nanos
}

// NewResponder creates a Responder writing through s.
func NewResponder(s Sender) *Responder {
	return &Responder{sender: s}
}

// Handle answers p when it is a Ping and reports whether p was consumed.
// Any other packet is left for the caller.
func (r *Responder) Handle(p protocol.Packet) (bool, error) {
	if _, ok := p.(protocol.Ping); !ok {
		return false, nil
	}
	r.lastPing.Store(time.Now().UnixNano())
	if err := r.sender.Send(protocol.Control(protocol.CodePong)); err != nil {
		return true, err
	}
	r.answered.Add(1)
	return true, nil
}

// Answered returns how many pings have been answered.
func (r *Responder) Answered() uint64 {
	return r.answered.Load()
}

// LastPing returns when the last ping arrived, or the zero time.
func (r *Responder) LastPing() time.Time {
	ns := r.lastPing.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
