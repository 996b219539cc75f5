package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide frame/session counter.
var Stats = &stats{}

type stats struct {
	Sessions     atomic.Int64 // cumulative count of sessions started since process start
	Closed       atomic.Int64 // cumulative count of sessions closed since process start
	FramesSent   atomic.Int64 // cumulative frames written to all transports
	FramesRecv   atomic.Int64 // cumulative frames read from all transports
	BytesSent    atomic.Int64 // cumulative bytes written to all transports
	BytesRecv    atomic.Int64 // cumulative bytes read from all transports
	EventsPassed atomic.Int64 // cumulative events handed to dispatchers
}

func (s *stats) AddSession()    { s.Sessions.Add(1) }
func (s *stats) RemoveSession() { s.Closed.Add(1) }
func (s *stats) AddEvent()      { s.EventsPassed.Add(1) }

func (s *stats) AddSent(n int) {
	s.FramesSent.Add(1)
	s.BytesSent.Add(int64(n))
}

func (s *stats) AddRecv(n int) {
	s.FramesRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// reportInterval is how often StartStatsReporter samples the counters.
const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs traffic statistics
// every 10 seconds while there is activity. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prev snapshot
		for {
			select {
			case <-ticker.C:
				cur := takeSnapshot()
				if line, ok := formatDelta(prev, cur, reportInterval); ok {
					pterm.DefaultLogger.Info(line)
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

type snapshot struct {
	framesSent, framesRecv int64
	bytesSent, bytesRecv   int64
	events                 int64
	opened, closed         int64
}

func takeSnapshot() snapshot {
	return snapshot{
		framesSent: Stats.FramesSent.Load(),
		framesRecv: Stats.FramesRecv.Load(),
		bytesSent:  Stats.BytesSent.Load(),
		bytesRecv:  Stats.BytesRecv.Load(),
		events:     Stats.EventsPassed.Load(),
		opened:     Stats.Sessions.Load(),
		closed:     Stats.Closed.Load(),
	}
}

// formatDelta renders the change between two snapshots. It reports false
// when nothing happened in the interval.
func formatDelta(prev, cur snapshot, interval time.Duration) (string, bool) {
	secs := interval.Seconds()
	inF := float64(cur.framesRecv-prev.framesRecv) / secs
	outF := float64(cur.framesSent-prev.framesSent) / secs
	inB := float64(cur.bytesRecv-prev.bytesRecv) / secs
	outB := float64(cur.bytesSent-prev.bytesSent) / secs
	ev := float64(cur.events-prev.events) / secs
	opened := cur.opened - prev.opened
	closed := cur.closed - prev.closed

	if inF == 0 && outF == 0 && opened == 0 && closed == 0 {
		return "", false
	}
	return formatStats(inF, outF, inB, outB, ev, opened, closed), true
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inF, outF, inB, outB, ev float64, opened, closed int64) string {
	return fmt.Sprintf("In: %5.1f f/s %s/s | Out: %5.1f f/s %s/s | Events: %5.1f/s | Sessions: %2d↑ %2d↓",
		inF, formatBytes(inB),
		outF, formatBytes(outB),
		ev,
		opened,
		closed,
	)
}
