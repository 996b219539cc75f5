// Package protocol defines the frame format and packet types for the
// Socket.IO-style text protocol: a decimal packet code followed by an
// optional JSON remainder.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Packet codes understood by the codec.
const (
	CodeNegotiation uint64 = 0  // Handshake opening
	CodePing        uint64 = 2  // Liveness probe from the peer
	CodePong        uint64 = 3  // Liveness answer
	CodeConnect     uint64 = 40 // Connect request (outbound) / ack (inbound)
	CodeEvent       uint64 = 42 // Named application event
)

// ErrNoPayload is returned by Event.Unmarshal when the event carried no
// object payload.
var ErrNoPayload = errors.New("event has no payload")

// Packet is the decoded form of one frame. The set of implementations is
// closed: Negotiation, Connect, Ping, Pong, Event and Unknown.
type Packet interface {
	PacketCode() uint64
	isPacket()
}

// Negotiation opens the handshake. Its payload is ignored.
type Negotiation struct{}

// Connect acknowledges the connect request. SID is empty when the peer did
// not send a string as the first array element.
type Connect struct {
	SID string
}

// Ping is a liveness probe.
type Ping struct{}

// Pong answers a liveness probe.
type Pong struct{}

// Event is a named application event.
//
// Name is the first array element when it is a string, and Named reports
// whether it was one, so 42["",{}] and 42[7,{}] stay distinct. Payload holds
// the second array element only when it is a JSON object; any other JSON
// type in that position leaves Payload nil.
type Event struct {
	Name    string
	Named   bool
	Payload json.RawMessage
}

// Unknown is any frame whose code is not otherwise recognized. Text is the
// remainder after the code, preserved verbatim.
type Unknown struct {
	Code uint64
	Text string
}

func (Negotiation) PacketCode() uint64 { return CodeNegotiation }
func (Connect) PacketCode() uint64     { return CodeConnect }
func (Ping) PacketCode() uint64        { return CodePing }
func (Pong) PacketCode() uint64        { return CodePong }
func (Event) PacketCode() uint64       { return CodeEvent }
func (u Unknown) PacketCode() uint64   { return u.Code }

func (Negotiation) isPacket() {}
func (Connect) isPacket()     {}
func (Ping) isPacket()        {}
func (Pong) isPacket()        {}
func (Event) isPacket()       {}
func (Unknown) isPacket()     {}

func (Negotiation) String() string { return "negotiation" }
func (c Connect) String() string   { return fmt.Sprintf("connect(sid=%q)", c.SID) }
func (Ping) String() string        { return "ping" }
func (Pong) String() string        { return "pong" }
func (e Event) String() string     { return fmt.Sprintf("event(%s, %d payload bytes)", e.label(), len(e.Payload)) }
func (u Unknown) String() string   { return fmt.Sprintf("unknown(code=%d, %q)", u.Code, truncate(u.Text)) }

func (e Event) label() string {
	if !e.Named {
		return "<unnamed>"
	}
	return strconv.Quote(e.Name)
}

// HasPayload reports whether the event carried an object payload.
func (e Event) HasPayload() bool { return e.Payload != nil }

// Unmarshal decodes the event payload into v.
func (e Event) Unmarshal(v any) error {
	if e.Payload == nil {
		return fmt.Errorf("%q: %w", e.Name, ErrNoPayload)
	}
	return json.Unmarshal(e.Payload, v)
}
