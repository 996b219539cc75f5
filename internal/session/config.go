package session

import "time"

// Config defines per-session transport limits.
type Config struct {
	// ReadTimeout bounds the wait for the next frame. The peer pings
	// periodically, so silence longer than this means it has stalled.
	// Zero disables the deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds each outbound frame write. Zero disables it.
	WriteTimeout time.Duration

	// InboxSize is the dispatcher queue depth.
	InboxSize int
}

// DefaultConfig returns the defaults used when no configuration is given.
// The read timeout leaves room for the peer's default 25s ping interval
// plus its 20s ping timeout.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		InboxSize:    256,
	}
}
