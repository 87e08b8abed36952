package rtc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const stateBuffer = 16

// WebRTCConnection wraps a pion PeerConnection as a core.PeerConnection.
type WebRTCConnection struct {
	pc            *webrtc.PeerConnection
	tag           string
	gatherTimeout time.Duration

	mu     sync.Mutex
	states chan domain.ConnState
	done   bool

	closeOnce sync.Once
	closeErr  error
}

func newConnection(pc *webrtc.PeerConnection, gatherTimeout time.Duration) *WebRTCConnection {
	c := &WebRTCConnection{
		pc:            pc,
		tag:           uuid.NewString()[:8],
		gatherTimeout: gatherTimeout,
		states:        make(chan domain.ConnState, stateBuffer),
	}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("pc", c.tag).Str("peer_connection_state", s.String()).Msg("Peer state")
		c.publish(mapState(s))
	})
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Debug().Str("module", "webrtc").Str("pc", c.tag).Str("ice_state", s.String()).Msg("ICE state")
	})
	return c
}

func mapState(s webrtc.PeerConnectionState) domain.ConnState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return domain.StateConnecting
	case webrtc.PeerConnectionStateConnected:
		return domain.StateConnected
	case webrtc.PeerConnectionStateDisconnected:
		return domain.StateDisconnected
	case webrtc.PeerConnectionStateFailed:
		return domain.StateFailed
	case webrtc.PeerConnectionStateClosed:
		return domain.StateClosed
	default:
		return domain.StateNew
	}
}

// publish forwards a state to the reader. Once a terminal state is seen the
// channel is closed and later notifications are ignored.
func (c *WebRTCConnection) publish(s domain.ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	select {
	case c.states <- s:
	default:
		log.Warn().Str("module", "webrtc").Str("pc", c.tag).Str("state", string(s)).Msg("state dropped, reader is slow")
	}
	if s.Terminal() {
		c.done = true
		close(c.states)
	}
}

func (c *WebRTCConnection) States() <-chan domain.ConnState { return c.states }

func (c *WebRTCConnection) AddTrack(track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	// RTCP has to be drained for interceptors (NACK, reports) to work.
	go c.readRTCP(sender, track.Kind().String())
	return nil
}

// readRTCP drains receiver feedback for one sender. RTSP cameras cannot be
// asked for a keyframe, so PLI/FIR are only logged.
func (c *WebRTCConnection) readRTCP(sender *webrtc.RTPSender, kind string) {
	for {
		pkts, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, pkt := range pkts {
			switch pkt.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				log.Debug().Str("module", "webrtc").Str("pc", c.tag).Str("kind", kind).Msg("keyframe requested by peer")
			}
		}
	}
}

func (c *WebRTCConnection) SetRemoteDescription(desc domain.SessionDescription) error {
	err := c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNegotiation, err)
	}
	return nil
}

func (c *WebRTCConnection) CreateAnswer() (domain.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, fmt.Errorf("%w: %w", domain.ErrNegotiation, err)
	}
	return domain.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

// SetLocalDescription waits for ICE gathering so the answer carries all
// candidates. If gathering outlasts gatherTimeout the partial set is used.
func (c *WebRTCConnection) SetLocalDescription(ctx context.Context, desc domain.SessionDescription) error {
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	err := c.pc.SetLocalDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNegotiation, err)
	}

	timer := time.NewTimer(c.gatherTimeout)
	defer timer.Stop()
	select {
	case <-gatherComplete:
	case <-timer.C:
		log.Warn().Str("module", "webrtc").Str("pc", c.tag).Dur("timeout", c.gatherTimeout).Msg("ICE gathering incomplete, answering with partial candidates")
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrNegotiation, ctx.Err())
	}
	return nil
}

func (c *WebRTCConnection) LocalDescription() (domain.SessionDescription, bool) {
	ld := c.pc.LocalDescription()
	if ld == nil {
		return domain.SessionDescription{}, false
	}
	return domain.SessionDescription{Type: ld.Type.String(), SDP: ld.SDP}, true
}

func (c *WebRTCConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.pc.Close()
		if c.closeErr != nil {
			log.Error().Err(c.closeErr).Str("module", "webrtc").Str("pc", c.tag).Msg("close error")
		} else {
			log.Info().Str("module", "webrtc").Str("pc", c.tag).Msg("closed")
		}
		c.publish(domain.StateClosed)
	})
	return c.closeErr
}
