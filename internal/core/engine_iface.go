package core

import (
	"context"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Engine creates peer connections. ICE/DTLS/SDP semantics live behind it.
type Engine interface {
	CreateConnection(ctx context.Context) (PeerConnection, error)
}

type PeerConnection interface {
	// AddTrack attaches a local media track before negotiation.
	AddTrack(track webrtc.TrackLocal) error
	SetRemoteDescription(desc domain.SessionDescription) error
	CreateAnswer() (domain.SessionDescription, error)
	// SetLocalDescription applies desc and waits until ICE gathering is
	// complete or ctx is done.
	SetLocalDescription(ctx context.Context, desc domain.SessionDescription) error
	// LocalDescription returns the current local SDP.
	LocalDescription() (domain.SessionDescription, bool)
	// States delivers engine-reported state changes. The channel is closed
	// after a terminal state has been delivered.
	States() <-chan domain.ConnState
	// Close should release all underlying engine resources. Safe to call
	// more than once.
	Close() error
}
