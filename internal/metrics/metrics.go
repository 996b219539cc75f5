// Package metrics exposes Prometheus counters for frames, sessions and
// dropped events.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1ureka/alclient/internal/protocol"
)

const namespace = "alclient"

// Registry holds every collector of this package. It is separate from the
// Prometheus default registry so tests and embedders see only our series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	FramesReceived = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_received_total",
		Help:      "Decoded frames received, by packet code.",
	}, []string{"code"})

	FramesSent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_sent_total",
		Help:      "Frames written to transports, by packet code.",
	}, []string{"code"})

	ProtocolViolations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_violations_total",
		Help:      "Frames rejected by the codec or the handshake sequence.",
	})

	EventsDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events dropped because a dispatcher inbox was full.",
	})

	SessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions currently registered.",
	})
)

// CodeLabel maps a packet code to a bounded label value. Unrecognized codes
// share the "other" label.
func CodeLabel(code uint64) string {
	switch code {
	case protocol.CodeNegotiation, protocol.CodePing, protocol.CodePong,
		protocol.CodeConnect, protocol.CodeEvent:
		return strconv.FormatUint(code, 10)
	}
	return "other"
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
