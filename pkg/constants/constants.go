// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// WebSocket constants
const (
	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout bounds a single write to a client socket
	WebSocketWriteTimeout = 10 * time.Second

	// WebSocketSendQueueSize is the per-connection outbound queue bound.
	// A session whose queue is full is treated as unresponsive and closed.
	WebSocketSendQueueSize = 256

	// WebSocketMaxMessageSize bounds inbound frames (SDP payloads included)
	WebSocketMaxMessageSize = 64 * 1024
)

// Call constants
const (
	// DefaultRingTimeout is how long a call may stay ringing before it is
	// marked missed
	DefaultRingTimeout = 30 * time.Second
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute

	// RefreshTokenExpiry is the default refresh token lifetime
	RefreshTokenExpiry = 30 * 24 * time.Hour
)

// Presence constants
const (
	// PresenceTTL is how long a presence key lives without a refresh
	PresenceTTL = 5 * time.Minute
)
