package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gorilla/websocket"
)

// ErrProtocolViolation is wrapped by every decode failure: non-text frames,
// a missing or malformed packet code, and invalid JSON remainders.
var ErrProtocolViolation = errors.New("protocol violation")

// maxQuoted caps how much of a raw frame is echoed back in errors and logs.
const maxQuoted = 64

// DecodeMessage decodes one message read from a WebSocket. Only text
// messages carry frames; anything else is a protocol violation.
func DecodeMessage(messageType int, data []byte) (Packet, error) {
	if messageType != websocket.TextMessage {
		return nil, fmt.Errorf("%w: non-text frame (message type %d, %d bytes)", ErrProtocolViolation, messageType, len(data))
	}
	return Decode(string(data))
}

// Decode parses a raw text frame into a Packet.
//
// The leading run of ASCII digits is the packet code; an empty run is an
// error, not code 0. For connect and event packets the remainder must be
// empty or valid JSON. Negotiation, ping and pong ignore their remainder,
// and unrecognized codes keep it verbatim in Unknown.Text.
func Decode(raw string) (Packet, error) {
	n := 0
	for n < len(raw) && raw[n] >= '0' && raw[n] <= '9' {
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: missing packet code in %q", ErrProtocolViolation, truncate(raw))
	}
	code, err := strconv.ParseUint(raw[:n], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: packet code %q: %v", ErrProtocolViolation, truncate(raw[:n]), err)
	}
	rest := raw[n:]

	switch code {
	case CodeNegotiation:
		return Negotiation{}, nil

	case CodePing:
		return Ping{}, nil

	case CodePong:
		return Pong{}, nil

	case CodeConnect:
		args, err := parseArgs(rest)
		if err != nil {
			return nil, err
		}
		sid, _ := stringAt(args, 0)
		return Connect{SID: sid}, nil

	case CodeEvent:
		args, err := parseArgs(rest)
		if err != nil {
			return nil, err
		}
		ev := Event{}
		ev.Name, ev.Named = stringAt(args, 0)
		if len(args) > 1 && isObject(args[1]) {
			ev.Payload = args[1]
		}
		return ev, nil

	default:
		return Unknown{Code: code, Text: rest}, nil
	}
}

// Encode builds an event frame: 42["<event>",<fragment>].
//
// The fragment must already be valid JSON text, and event is inserted
// without escaping. Both are the caller's responsibility; Encode does not
// validate either.
func Encode(event, fragment string) string {
	return "42[\"" + event + "\"," + fragment + "]"
}

// Control returns the bare frame for a payload-less packet code, such as
// "40" for a connect request or "3" for a pong.
func Control(code uint64) string {
	return strconv.FormatUint(code, 10)
}

// parseArgs validates a JSON remainder and splits it into array elements.
// Valid JSON that is not an array yields no elements.
func parseArgs(rest string) ([]json.RawMessage, error) {
	if rest == "" {
		return nil, nil
	}
	data := []byte(rest)
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON remainder %q", ErrProtocolViolation, truncate(rest))
	}
	var args []json.RawMessage
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, nil
	}
	for i := range args {
		args[i] = bytes.TrimSpace(args[i])
	}
	return args, nil
}

// stringAt returns args[i] when it is a JSON string.
func stringAt(args []json.RawMessage, i int) (string, bool) {
	if i >= len(args) || len(args[i]) == 0 || args[i][0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return "", false
	}
	return s, true
}

func isObject(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '{'
}

func truncate(s string) string {
	if len(s) <= maxQuoted {
		return s
	}
	return s[:maxQuoted] + "..."
}
