package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/alclient/internal/metrics"
	"github.com/1ureka/alclient/internal/util"
)

// sender serializes outgoing frames to the transport, so replies produced
// by the receive loop and caller emits keep their relative order.
type sender struct {
	conn    Conn
	timeout time.Duration
	log     util.Logger
	mu      sync.Mutex
}

// Send writes one text frame, guarded by a mutex.
func (s *sender) Send(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return &TransportError{Op: "write", Err: err}
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}

	s.log.Debug("sent: %s", frame)
	util.Stats.AddSent(len(frame))
	metrics.FramesSent.WithLabelValues(metrics.CodeLabel(frameCode(frame))).Inc()
	return nil
}

// frameCode reads the leading packet code of an outbound frame.
func frameCode(frame string) uint64 {
	var code uint64
	for i := 0; i < len(frame) && frame[i] >= '0' && frame[i] <= '9'; i++ {
		code = code*10 + uint64(frame[i]-'0')
	}
	return code
}
