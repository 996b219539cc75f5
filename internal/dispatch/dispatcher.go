// Package dispatch routes decoded application events to caller-registered
// handlers without blocking the session's receive loop.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1ureka/alclient/internal/metrics"
	"github.com/1ureka/alclient/internal/protocol"
	"github.com/1ureka/alclient/internal/util"
)

// DefaultInboxSize is the inbox capacity used when New is given a
// non-positive size.
const DefaultInboxSize = 256

// drainTimeout bounds how long a stopping worker keeps delivering packets
// that were queued before it was told to stop.
const drainTimeout = time.Second

// Handler reacts to a named event.
type Handler func(protocol.Event)

// UnknownHandler reacts to a packet with an unrecognized code.
type UnknownHandler func(protocol.Unknown)

// Dispatcher maintains the event-name → handlers table and a bounded inbox
// drained by a single worker goroutine, so handlers see packets in arrival
// order and a slow handler never stalls the receive loop.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	any      []Handler
	unknown  []UnknownHandler

	inbox     chan protocol.Packet
	dropped   atomic.Int64
	log       util.Logger
	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a dispatcher whose log lines are tagged with tag.
func New(tag string, size int) *Dispatcher {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		inbox:    make(chan protocol.Packet, size),
		log:      util.Tagged(tag),
		done:     make(chan struct{}),
	}
}

// On registers h for events named name. Several handlers may share a name;
// they run in registration order.
func (d *Dispatcher) On(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

// OnAny registers h for every event, after the name-specific handlers.
func (d *Dispatcher) OnAny(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.any = append(d.any, h)
}

// OnUnknown registers h for packets with unrecognized codes.
func (d *Dispatcher) OnUnknown(h UnknownHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unknown = append(d.unknown, h)
}

// Dispatch enqueues p for the worker. It never blocks: when the inbox is
// full the packet is dropped and false is returned.
func (d *Dispatcher) Dispatch(p protocol.Packet) bool {
	select {
	case d.inbox <- p:
		util.Stats.AddEvent()
		return true
	default:
		d.dropped.Add(1)
		metrics.EventsDropped.Inc()
		d.log.Warn("inbox full, dropping %v", p)
		return false
	}
}

// Dropped returns how many packets were dropped on a full inbox.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Start launches the worker goroutine. It exits when ctx is cancelled or
// Stop is called, after delivering what is already queued for at most
// drainTimeout. Calling Start more than once has no effect.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		go d.loop(ctx)
	})
}

// Stop ends the worker and waits for it to exit. A dispatcher stopped before
// Start never starts.
func (d *Dispatcher) Stop() {
	d.startOnce.Do(func() { close(d.done) })
	if d.cancel != nil {
		d.cancel()
	}
	<-d.done
}

// Done returns a channel that is closed when the worker has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case p := <-d.inbox:
			d.deliver(p)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

// drain delivers the packets queued at stop time; the rest are counted as
// dropped once drainTimeout has passed.
func (d *Dispatcher) drain() {
	deadline := time.Now().Add(drainTimeout)
	for n := len(d.inbox); n > 0; n-- {
		if time.Now().After(deadline) {
			break
		}
		select {
		case p := <-d.inbox:
			d.deliver(p)
		default:
			return
		}
	}
	if left := len(d.inbox); left > 0 {
		d.dropped.Add(int64(left))
		metrics.EventsDropped.Add(float64(left))
		d.log.Warn("stopped with %d packets undelivered", left)
	}
}

func (d *Dispatcher) deliver(p protocol.Packet) {
	switch p := p.(type) {
	case protocol.Event:
		d.mu.RLock()
		named := d.handlers[p.Name]
		all := d.any
		d.mu.RUnlock()

		for _, h := range named {
			d.call(p, func() { h(p) })
		}
		for _, h := range all {
			d.call(p, func() { h(p) })
		}

	case protocol.Unknown:
		d.mu.RLock()
		unknown := d.unknown
		d.mu.RUnlock()

		for _, h := range unknown {
			d.call(p, func() { h(p) })
		}

	default:
		d.log.Debug("no dispatch route for %v", p)
	}
}

// call runs one handler, converting a panic into a logged error so a faulty
// handler cannot take the session down.
func (d *Dispatcher) call(p protocol.Packet, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler for %v panicked: %v", p, fmt.Sprint(r))
		}
	}()
	fn()
}
