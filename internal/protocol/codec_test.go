package protocol_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/alclient/internal/protocol"
)

// TestDecode verifies the code → packet mapping for every recognized code.
func TestDecode(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want protocol.Packet
	}{
		{"negotiation with handshake body", `0{"sid":"xyz","upgrades":[],"pingInterval":25000}`, protocol.Negotiation{}},
		{"negotiation with garbage", `0not json at all`, protocol.Negotiation{}},
		{"bare negotiation", `0`, protocol.Negotiation{}},
		{"ping", `2`, protocol.Ping{}},
		{"pong", `3`, protocol.Pong{}},
		{"connect with sid", `40["abc123"]`, protocol.Connect{SID: "abc123"}},
		{"connect without remainder", `40`, protocol.Connect{}},
		{"connect with non-string sid", `40[12]`, protocol.Connect{}},
		{"connect with object remainder", `40{"sid":"abc"}`, protocol.Connect{}},
		{"event with object payload", `42["e",{"a":1}]`, protocol.Event{Name: "e", Named: true, Payload: json.RawMessage(`{"a":1}`)}},
		{"event with number payload", `42["e",5]`, protocol.Event{Name: "e", Named: true}},
		{"event with array payload", `42["e",[1,2]]`, protocol.Event{Name: "e", Named: true}},
		{"event with string payload", `42["e","s"]`, protocol.Event{Name: "e", Named: true}},
		{"event with null payload", `42["e",null]`, protocol.Event{Name: "e", Named: true}},
		{"event without payload", `42["welcome"]`, protocol.Event{Name: "welcome", Named: true}},
		{"event with non-string name", `42[7,{"a":1}]`, protocol.Event{Payload: json.RawMessage(`{"a":1}`)}},
		{"event with empty array", `42[]`, protocol.Event{}},
		{"event with empty name", `42["",{}]`, protocol.Event{Name: "", Named: true, Payload: json.RawMessage(`{}`)}},
		{"event with spaced elements", `42[ "e" , {"a": 1} ]`, protocol.Event{Name: "e", Named: true, Payload: json.RawMessage(`{"a": 1}`)}},
		{"event with escaped name", `42["a\"b"]`, protocol.Event{Name: `a"b`, Named: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := protocol.Decode(tc.raw)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tc.raw, diff)
			}
		})
	}
}

// TestDecodeUnknown verifies that unrecognized codes never fail and keep the
// remainder verbatim.
func TestDecodeUnknown(t *testing.T) {
	testCases := []struct {
		raw  string
		code uint64
		text string
	}{
		{"99garbage", 99, "garbage"},
		{"1", 1, ""},
		{"4", 4, ""},
		{"41", 41, ""},
		{"43[\"not\",\"json\"", 43, "[\"not\",\"json\""},
		{"451-[\"bin\",{\"_placeholder\":true,\"num\":0}]", 451, "-[\"bin\",{\"_placeholder\":true,\"num\":0}]"},
		{"6 ", 6, " "},
		{"007x", 7, "x"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := protocol.Decode(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, protocol.Unknown{Code: tc.code, Text: tc.text}, got)
			assert.Equal(t, tc.code, got.PacketCode())
		})
	}
}

// TestDecodeProtocolViolation verifies that malformed frames fail with
// ErrProtocolViolation rather than panicking.
func TestDecodeProtocolViolation(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no leading digit", "abc"},
		{"leading space", " 2"},
		{"json only", `["e",{}]`},
		{"event with invalid json", `42["e",`},
		{"event with trailing garbage", `42["e"]x`},
		{"connect with invalid json", `40[abc]`},
		{"code overflows", strings.Repeat("9", 30)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var (
				got protocol.Packet
				err error
			)
			require.NotPanics(t, func() { got, err = protocol.Decode(tc.raw) })
			assert.Nil(t, got)
			assert.ErrorIs(t, err, protocol.ErrProtocolViolation)
		})
	}
}

// TestDecodeMessage verifies that only text WebSocket messages are decoded.
func TestDecodeMessage(t *testing.T) {
	got, err := protocol.DecodeMessage(websocket.TextMessage, []byte("2"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Ping{}, got)

	for _, mt := range []int{websocket.BinaryMessage, websocket.CloseMessage, websocket.PingMessage} {
		got, err := protocol.DecodeMessage(mt, []byte("2"))
		assert.Nil(t, got)
		assert.ErrorIs(t, err, protocol.ErrProtocolViolation, "message type %d", mt)
	}
}

// TestEncodeDecodeRoundTrip verifies that an encoded event decodes back to
// the same name and object payload.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		event    string
		fragment string
		payload  json.RawMessage
	}{
		{"foo", "{}", json.RawMessage(`{}`)},
		{"loaded", `{"success":1,"width":1920,"height":1080,"scale":2}`, json.RawMessage(`{"success":1,"width":1920,"height":1080,"scale":2}`)},
		{"say", `"hello"`, nil},
		{"move", `[1,2]`, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.event, func(t *testing.T) {
			frame := protocol.Encode(tc.event, tc.fragment)
			assert.Equal(t, `42["`+tc.event+`",`+tc.fragment+`]`, frame)

			got, err := protocol.Decode(frame)
			require.NoError(t, err)
			if diff := cmp.Diff(protocol.Event{Name: tc.event, Named: true, Payload: tc.payload}, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestEncodeDoesNotEscape pins the documented contract: the event name is
// inserted as-is.
func TestEncodeDoesNotEscape(t *testing.T) {
	assert.Equal(t, `42["a"b",{}]`, protocol.Encode(`a"b`, "{}"))
}

func TestControl(t *testing.T) {
	assert.Equal(t, "40", protocol.Control(protocol.CodeConnect))
	assert.Equal(t, "3", protocol.Control(protocol.CodePong))
	assert.Equal(t, "2", protocol.Control(protocol.CodePing))
}

func TestEventUnmarshal(t *testing.T) {
	pkt, err := protocol.Decode(`42["welcome",{"region":"EU","in":"main"}]`)
	require.NoError(t, err)
	ev := pkt.(protocol.Event)
	require.True(t, ev.HasPayload())

	var body struct {
		Region string `json:"region"`
		In     string `json:"in"`
	}
	require.NoError(t, ev.Unmarshal(&body))
	assert.Equal(t, "EU", body.Region)
	assert.Equal(t, "main", body.In)

	empty := protocol.Event{Name: "bare", Named: true}
	assert.ErrorIs(t, empty.Unmarshal(&body), protocol.ErrNoPayload)
}

// TestDecodeControlIgnoresRemainder pins that ping and pong carry no
// payload: whatever follows the code is not parsed.
func TestDecodeControlIgnoresRemainder(t *testing.T) {
	testCases := []struct {
		raw  string
		want protocol.Packet
	}{
		{`2garbage`, protocol.Ping{}},
		{`2{"not":"parsed"`, protocol.Ping{}},
		{`3x`, protocol.Pong{}},
		{`3[]`, protocol.Pong{}},
	}

	for _, tc := range testCases {
		got, err := protocol.Decode(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestEventString(t *testing.T) {
	named, err := protocol.Decode(`42["",{}]`)
	require.NoError(t, err)
	unnamed, err := protocol.Decode(`42[7,{}]`)
	require.NoError(t, err)

	assert.Equal(t, `event("", 2 payload bytes)`, named.(protocol.Event).String())
	assert.Equal(t, `event(<unnamed>, 2 payload bytes)`, unnamed.(protocol.Event).String())
}
