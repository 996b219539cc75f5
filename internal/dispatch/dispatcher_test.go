package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1ureka/alclient/internal/protocol"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler")
	}
	var zero T
	return zero
}

func TestNamedHandlersRunInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New("test", 8)
	got := make(chan string, 8)
	d.On("chat", func(e protocol.Event) { got <- "first:" + e.Name })
	d.On("chat", func(e protocol.Event) { got <- "second:" + e.Name })
	d.On("other", func(e protocol.Event) { got <- "wrong:" + e.Name })
	d.Start(ctx)

	require.True(t, d.Dispatch(protocol.Event{Name: "chat"}))

	assert.Equal(t, "first:chat", receive(t, got))
	assert.Equal(t, "second:chat", receive(t, got))
}

func TestOnAnySeesEveryEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New("test", 8)
	got := make(chan string, 8)
	d.OnAny(func(e protocol.Event) { got <- e.Name })

	// Queued before the worker starts; delivered in arrival order.
	for _, name := range []string{"a", "b", "c"} {
		require.True(t, d.Dispatch(protocol.Event{Name: name}))
	}
	d.Start(ctx)

	assert.Equal(t, "a", receive(t, got))
	assert.Equal(t, "b", receive(t, got))
	assert.Equal(t, "c", receive(t, got))
}

func TestUnknownPacketsReachUnknownHandlers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New("test", 8)
	got := make(chan protocol.Unknown, 1)
	d.OnUnknown(func(u protocol.Unknown) { got <- u })
	d.OnAny(func(e protocol.Event) { t.Errorf("unexpected event %v", e) })
	d.Start(ctx)

	d.Dispatch(protocol.Unknown{Code: 99, Text: "garbage"})
	assert.Equal(t, protocol.Unknown{Code: 99, Text: "garbage"}, receive(t, got))
}

func TestFullInboxDropsWithoutBlocking(t *testing.T) {
	d := New("test", 2)

	assert.True(t, d.Dispatch(protocol.Event{Name: "1"}))
	assert.True(t, d.Dispatch(protocol.Event{Name: "2"}))

	done := make(chan bool, 1)
	go func() { done <- d.Dispatch(protocol.Event{Name: "3"}) }()
	assert.False(t, receive(t, done))
	assert.Equal(t, int64(1), d.Dropped())
}

func TestPanickingHandlerDoesNotStopWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New("test", 8)
	got := make(chan string, 1)
	d.On("boom", func(protocol.Event) { panic("handler bug") })
	d.On("ok", func(e protocol.Event) { got <- e.Name })
	d.Start(ctx)

	d.Dispatch(protocol.Event{Name: "boom"})
	d.Dispatch(protocol.Event{Name: "ok"})
	assert.Equal(t, "ok", receive(t, got))
}

func TestHandlersCanBeAddedWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := New("test", 8)
	d.Start(ctx)

	got := make(chan string, 1)
	d.On("late", func(e protocol.Event) { got <- e.Name })
	d.Dispatch(protocol.Event{Name: "late"})
	assert.Equal(t, "late", receive(t, got))
}

func TestWorkerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := New("test", 8)
	d.Start(ctx)
	d.Start(ctx)
	cancel()

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestStop(t *testing.T) {
	d := New("test", 8)
	d.Start(context.Background())

	got := make(chan string, 1)
	d.On("tick", func(e protocol.Event) { got <- e.Name })
	d.Dispatch(protocol.Event{Name: "tick"})
	assert.Equal(t, "tick", receive(t, got))

	d.Stop()
	d.Stop()
	select {
	case <-d.Done():
	default:
		t.Fatal("Stop returned before the worker exited")
	}
}

func TestStopBeforeStart(t *testing.T) {
	d := New("test", 8)
	d.Stop()
	d.Start(context.Background())
	assert.Len(t, d.inbox, 0)
	require.True(t, d.Dispatch(protocol.Event{Name: "queued"}))
	assert.Len(t, d.inbox, 1, "a stopped dispatcher does not consume")
}

func TestStopDeliversQueuedPackets(t *testing.T) {
	d := New("test", 8)
	var got []string
	d.OnAny(func(e protocol.Event) { got = append(got, e.Name) })

	for _, name := range []string{"a", "b", "c"} {
		require.True(t, d.Dispatch(protocol.Event{Name: name, Named: true}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Stop()

	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, d.Dropped())
}
