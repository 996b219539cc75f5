// Package session drives one logical connection: it reads frames from its
// transport, sequences the handshake, answers keepalive probes and forwards
// application events to a dispatcher.
//
// Handshake:
//
//	Unconnected --0--> Negotiating  (replies "40")
//	Negotiating --40-> Connected    (stores the sid)
//	Connected   --42["welcome"]--> Ready (replies with the "loaded" event)
//
// A ping is answered with a pong in any phase. Decode failures, handshake
// packets out of order and transport failures move the session to Closed.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1ureka/alclient/internal/api"
	"github.com/1ureka/alclient/internal/dispatch"
	"github.com/1ureka/alclient/internal/keepalive"
	"github.com/1ureka/alclient/internal/metrics"
	"github.com/1ureka/alclient/internal/protocol"
	"github.com/1ureka/alclient/internal/util"
)

const (
	// WelcomeEvent is the server event that completes the handshake.
	WelcomeEvent = "welcome"

	// LoadedEvent announces that the client is ready.
	LoadedEvent = "loaded"

	// LoadedPayload is the fixed body of the readiness announcement.
	LoadedPayload = `{"success":1,"width":1920,"height":1080,"scale":2}`
)

// Phase is the handshake phase of a session.
type Phase int32

const (
	PhaseUnconnected Phase = iota
	PhaseNegotiating
	PhaseConnected
	PhaseReady
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnconnected:
		return "unconnected"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseConnected:
		return "connected"
	case PhaseReady:
		return "ready"
	case PhaseClosed:
		return "closed"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// Conn is the transport a Session owns. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Identity names the character and server a session plays on.
type Identity struct {
	Character string
	Server    string
}

// Session is one logical connection. It owns its Conn exclusively.
type Session struct {
	id       string
	identity Identity
	cred     *api.Credential
	conn     Conn
	cfg      Config
	log      util.Logger

	out        *sender
	keepalive  *keepalive.Responder
	dispatcher *dispatch.Dispatcher

	mu    sync.Mutex
	phase Phase
	sid   string

	closeOnce sync.Once
	closeErr  error
}

// New creates a session over conn. cred must come from a prior login; the
// session keeps a reference to it and never inspects it.
func New(conn Conn, identity Identity, cred *api.Credential, cfg Config) (*Session, error) {
	if cred == nil || !cred.Valid() {
		return nil, ErrNoCredential
	}
	if conn == nil {
		return nil, ErrNoTransport
	}

	id := uuid.NewString()
	log := util.Tagged(identity.Character + " " + id[:8])
	out := &sender{conn: conn, timeout: cfg.WriteTimeout, log: log}

	s := &Session{
		id:         id,
		identity:   identity,
		cred:       cred,
		conn:       conn,
		cfg:        cfg,
		log:        log,
		out:        out,
		keepalive:  keepalive.NewResponder(out),
		dispatcher: dispatch.New(identity.Character, cfg.InboxSize),
	}
	util.Stats.AddSession()
	return s, nil
}

// ID returns the instance id of this connection.
func (s *Session) ID() string { return s.id }

// Identity returns the character and server of this session.
func (s *Session) Identity() Identity { return s.identity }

// Dispatcher returns the dispatcher that receives this session's events.
// Handlers may be registered on it at any time.
func (s *Session) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// Phase returns the current handshake phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SID returns the session id assigned by the peer, or "" before Connected.
func (s *Session) SID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// Pings returns how many keepalive probes have been answered.
func (s *Session) Pings() uint64 { return s.keepalive.Answered() }

// Emit sends a named event. fragment must be valid JSON text.
func (s *Session) Emit(event, fragment string) error {
	if s.Phase() == PhaseClosed {
		return ErrClosed
	}
	return s.out.Send(protocol.Encode(event, fragment))
}

// Run reads and handles frames until the transport fails, a frame violates
// the protocol, Close is called, or ctx is cancelled. It returns nil after
// Close, ctx.Err() after cancellation, and the terminal error otherwise.
// The session is Closed when Run returns.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	s.dispatcher.Start(ctx)
	defer s.dispatcher.Stop()

	s.log.Info("session started on %s", s.identity.Server)
	for {
		if s.cfg.ReadTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
				return s.readFailed(ctx, err)
			}
		}

		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return s.readFailed(ctx, err)
		}

		if err := s.HandleMessage(mt, data); err != nil {
			return err
		}
	}
}

// readFailed turns a read-side error into Run's result. A failure caused by
// cancellation or a local Close is a clean stop, not a transport error.
func (s *Session) readFailed(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		s.Close()
		return ctx.Err()
	}
	if s.Phase() == PhaseClosed {
		return nil
	}
	terr := &TransportError{Op: "read", Err: err}
	if terr.Timeout() {
		if last := s.keepalive.LastPing(); last.IsZero() {
			s.log.Warn("no frame for %s and no ping yet, peer stalled", s.cfg.ReadTimeout)
		} else {
			s.log.Warn("no frame for %s (last ping %s ago), peer stalled", s.cfg.ReadTimeout, time.Since(last).Round(time.Second))
		}
	}
	return s.fail(terr)
}

// HandleMessage decodes and handles one message read from the transport.
// Any error closes the session.
func (s *Session) HandleMessage(messageType int, data []byte) error {
	if s.Phase() == PhaseClosed {
		return ErrClosed
	}
	util.Stats.AddRecv(len(data))

	pkt, err := protocol.DecodeMessage(messageType, data)
	if err != nil {
		metrics.ProtocolViolations.Inc()
		return s.fail(err)
	}
	metrics.FramesReceived.WithLabelValues(metrics.CodeLabel(pkt.PacketCode())).Inc()
	s.log.Debug("recv: %v", pkt)

	if err := s.handle(pkt); err != nil {
		return s.fail(err)
	}
	return nil
}

// handle routes one packet. Every Packet variant has its own case.
func (s *Session) handle(pkt protocol.Packet) error {
	switch p := pkt.(type) {
	case protocol.Ping:
		_, err := s.keepalive.Handle(p)
		return err

	case protocol.Pong:
		return nil

	case protocol.Negotiation:
		return s.advance(PhaseUnconnected, PhaseNegotiating, p, func() error {
			return s.out.Send(protocol.Control(protocol.CodeConnect))
		})

	case protocol.Connect:
		err := s.advance(PhaseNegotiating, PhaseConnected, p, func() error {
			s.mu.Lock()
			s.sid = p.SID
			s.mu.Unlock()
			return nil
		})
		if err != nil {
			return err
		}
		s.log.Info("connected (sid=%s)", p.SID)
		return nil

	case protocol.Event:
		if p.Name == WelcomeEvent {
			err := s.advance(PhaseConnected, PhaseReady, p, func() error {
				return s.out.Send(protocol.Encode(LoadedEvent, LoadedPayload))
			})
			if err != nil {
				return err
			}
			s.log.Info("ready")
		}
		s.dispatcher.Dispatch(p)
		return nil

	case protocol.Unknown:
		s.dispatcher.Dispatch(p)
		return nil

	default:
		return fmt.Errorf("%w: unhandled packet %T", protocol.ErrProtocolViolation, pkt)
	}
}

// advance moves the session from one phase to the next. The transition is
// rejected when the session is not in from; action runs before the phase
// changes, and a failing action leaves the phase untouched.
func (s *Session) advance(from, to Phase, pkt protocol.Packet, action func() error) error {
	if cur := s.Phase(); cur != from {
		metrics.ProtocolViolations.Inc()
		return fmt.Errorf("%w: %v while %s", ErrOutOfSequence, pkt, cur)
	}
	if action != nil {
		if err := action(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == from {
		s.phase = to
	}
	return nil
}

// fail closes the session and returns err.
func (s *Session) fail(err error) error {
	s.log.Error("closing: %v", err)
	s.Close()
	return err
}

// Close moves the session to Closed and closes the transport. It is safe to
// call more than once and from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.phase = PhaseClosed
		s.mu.Unlock()

		if err := s.conn.Close(); err != nil {
			s.closeErr = &TransportError{Op: "close", Err: err}
		}
		util.Stats.RemoveSession()
		s.log.Info("session closed")
	})
	return s.closeErr
}
