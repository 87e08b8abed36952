package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaSource turns a stream URL into playable tracks.
type MediaSource interface {
	// Open fails with domain.ErrSourceUnreachable when the stream cannot be
	// reached or described.
	Open(ctx context.Context, url string) (MediaPlayer, error)
}

// MediaPlayer is owned by exactly one connection handle.
type MediaPlayer interface {
	// Tracks may be empty: audio, video, both or neither are all valid.
	Tracks() []webrtc.TrackLocal
	// Stop releases the stream. Safe to call more than once.
	Stop()
}
