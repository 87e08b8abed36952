package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bluenviron/gortsplib/v5"
	"github.com/bluenviron/gortsplib/v5/pkg/base"
	"github.com/dkeye/CamBridge/internal/core"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TestScheme selects a player without tracks, for local runs without a
// camera.
const TestScheme = "test:"

const streamID = "cambridge"

// RTSPSource opens RTSP streams with gortsplib and exposes their video and
// audio as WebRTC tracks.
type RTSPSource struct {
	// Timeout bounds RTSP reads and writes, including the initial DESCRIBE.
	Timeout time.Duration
}

func NewRTSPSource(timeout time.Duration) *RTSPSource {
	return &RTSPSource{Timeout: timeout}
}

// Open connects to url and starts playing. ctx only bounds the setup; the
// returned player streams until Stop.
func (s *RTSPSource) Open(ctx context.Context, url string) (core.MediaPlayer, error) {
	if strings.HasPrefix(url, TestScheme) {
		log.Info().Str("module", "media").Msg("test source, no tracks")
		return &rtspPlayer{}, nil
	}

	u, err := base.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %w", domain.ErrSourceUnreachable, err)
	}

	logger := log.With().Str("module", "media").Str("host", u.Host).Logger()

	c := &gortsplib.Client{
		Scheme:       u.Scheme,
		Host:         u.Host,
		ReadTimeout:  s.Timeout,
		WriteTimeout: s.Timeout,
	}

	type result struct {
		player *rtspPlayer
		err    error
	}
	done := make(chan result, 1)
	go func() {
		p, err := s.start(c, u, &logger)
		done <- result{p, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnreachable, res.err)
		}
		return res.player, nil
	case <-ctx.Done():
		// The setup is bounded by Timeout; a late player is stopped.
		go func() {
			if res := <-done; res.err == nil {
				res.player.Stop()
			}
		}()
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnreachable, ctx.Err())
	}
}

// start runs the RTSP handshake. The client is closed on any error after it
// has been started.
func (s *RTSPSource) start(c *gortsplib.Client, u *base.URL, logger *zerolog.Logger) (*rtspPlayer, error) {
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	p, err := s.play(c, u, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	return p, nil
}

func (s *RTSPSource) play(c *gortsplib.Client, u *base.URL, logger *zerolog.Logger) (*rtspPlayer, error) {
	desc, _, err := c.Describe(u)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}

	p := &rtspPlayer{client: c}
	for _, pick := range []func() (selection, bool){
		func() (selection, bool) { return pickVideo(desc) },
		func() (selection, bool) { return pickAudio(desc) },
	} {
		sel, ok := pick()
		if !ok {
			continue
		}
		track, err := webrtc.NewTrackLocalStaticRTP(sel.codec, sel.kind, streamID)
		if err != nil {
			return nil, fmt.Errorf("%s track: %w", sel.kind, err)
		}
		if _, err := c.Setup(desc.BaseURL, sel.media, 0, 0); err != nil {
			return nil, fmt.Errorf("setup %s: %w", sel.kind, err)
		}
		ot := NewOutTrack(track)
		c.OnPacketRTP(sel.media, sel.format, func(pkt *rtp.Packet) {
			ot.forward(pkt, logger)
		})
		p.outs = append(p.outs, ot)
		logger.Info().Str("kind", sel.kind).Str("codec", sel.codec.MimeType).Msg("media selected")
	}

	if len(p.outs) == 0 {
		logger.Warn().Msg("stream has no supported media, continuing without tracks")
		return p, nil
	}
	if _, err := c.Play(nil); err != nil {
		return nil, fmt.Errorf("play: %w", err)
	}

	go func() {
		err := c.Wait()
		logger.Info().Err(err).Msg("rtsp client finished")
	}()
	return p, nil
}

// rtspPlayer owns one RTSP client and the tracks it feeds.
type rtspPlayer struct {
	client   *gortsplib.Client
	outs     []*OutTrack
	stopOnce sync.Once
}

func (p *rtspPlayer) Tracks() []webrtc.TrackLocal {
	out := make([]webrtc.TrackLocal, 0, len(p.outs))
	for _, ot := range p.outs {
		out = append(out, ot.Track)
	}
	return out
}

func (p *rtspPlayer) Stop() {
	p.stopOnce.Do(func() {
		for _, ot := range p.outs {
			ot.MarkDelete()
		}
		if p.client != nil {
			p.client.Close()
		}
		log.Info().Str("module", "media").Int("tracks", len(p.outs)).Msg("player stopped")
	})
}
