package media

import (
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateDelete
)

// OutTrack is one local WebRTC track fed from an RTSP media.
type OutTrack struct {
	Track *webrtc.TrackLocalStaticRTP
	state atomic.Int32 // Zero by default (TrackStateOk)
}

func NewOutTrack(track *webrtc.TrackLocalStaticRTP) *OutTrack {
	return &OutTrack{Track: track}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}

// forward writes pkt unless the track was retired. A write error retires
// the track so a broken sink does not spam the log for every packet.
func (ot *OutTrack) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	if ot.GetState() == TrackStateDelete {
		return
	}
	if err := ot.Track.WriteRTP(pkt); err != nil {
		logger.Error().
			Err(err).
			Str("track_id", ot.Track.ID()).
			Msg("write RTP error, marking outtrack as delete")
		ot.MarkDelete()
	}
}
