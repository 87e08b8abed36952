package rtc

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/CamBridge/internal/core"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// IceServerSource provides the ICE servers for each new connection.
type IceServerSource interface {
	Get() []domain.IceServer
}

// Engine is the pion-backed core.Engine.
type Engine struct {
	api           *webrtc.API
	ice           IceServerSource
	gatherTimeout time.Duration
}

func NewEngine(ice IceServerSource, gatherTimeout time.Duration) (*Engine, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	s := webrtc.SettingEngine{LoggerFactory: NewLoggerFactory()}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(s),
	)
	return &Engine{api: api, ice: ice, gatherTimeout: gatherTimeout}, nil
}

// Configuration builds a pion configuration from the current ICE servers.
func (e *Engine) Configuration() webrtc.Configuration {
	return webrtc.Configuration{ICEServers: ToWebRTC(e.ice.Get())}
}

func (e *Engine) CreateConnection(_ context.Context) (core.PeerConnection, error) {
	pc, err := e.api.NewPeerConnection(e.Configuration())
	if err != nil {
		return nil, fmt.Errorf("%w: new peer connection: %w", domain.ErrNegotiation, err)
	}
	c := newConnection(pc, e.gatherTimeout)
	log.Debug().Str("module", "webrtc").Str("pc", c.tag).Msg("peer connection created")
	return c, nil
}

func ToWebRTC(servers []domain.IceServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: append([]string(nil), s.URLs...)}
		if s.Username != nil {
			srv.Username = *s.Username
		}
		if s.Credential != nil {
			srv.Credential = *s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out = append(out, srv)
	}
	return out
}
