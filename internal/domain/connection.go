// Package domain contains entity without logic, just meta-data
package domain

import "github.com/google/uuid"

type ConnID string

// NewConnID is a tiny helper to avoid ad-hoc uuid calls in adapters.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// ConnState mirrors the engine-reported peer connection state.
type ConnState string

const (
	StateNew        ConnState = "new"
	StateConnecting ConnState = "connecting"
	StateConnected  ConnState = "connected"
	StateFailed     ConnState = "failed"
	StateClosed     ConnState = "closed"

	// StateDisconnected is transient; the engine may still recover.
	StateDisconnected ConnState = "disconnected"
)

// Terminal reports whether the state ends the connection lifetime.
// Failed and closed are equivalent for cleanup.
func (s ConnState) Terminal() bool {
	return s == StateFailed || s == StateClosed
}
