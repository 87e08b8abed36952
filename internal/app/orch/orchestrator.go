package orch

import (
	"context"
	"time"

	"github.com/dkeye/CamBridge/internal/app"
	"github.com/dkeye/CamBridge/internal/core"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// CameraAlias is the stream path that selects the configured camera.
const CameraAlias = "camera"

// Orchestrator drives the publisher and subscriber offer flows and keeps the
// registry in sync with engine-reported connection state.
type Orchestrator struct {
	Registry *app.Registry
	Engine   core.Engine
	Media    core.MediaSource

	// DefaultStreamURL is used when the stream path is empty or CameraAlias.
	DefaultStreamURL string
	// CloseTimeout bounds each connection close during Shutdown.
	CloseTimeout time.Duration

	// ctx scopes the state watchers; it outlives individual requests.
	ctx context.Context
}

func New(ctx context.Context, reg *app.Registry, engine core.Engine, media core.MediaSource, defaultStreamURL string, closeTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		Registry:         reg,
		Engine:           engine,
		Media:            media,
		DefaultStreamURL: defaultStreamURL,
		CloseTimeout:     closeTimeout,
		ctx:              ctx,
	}
}

type OfferRequest struct {
	Offer      domain.SessionDescription
	StreamPath string
	// Client identifies the caller for logs and the connection listing.
	Client string
}

type Health struct {
	Status            string `json:"status"`
	ActiveConnections int    `json:"active_connections"`
}

func (o *Orchestrator) Health() Health {
	return Health{Status: "ok", ActiveConnections: o.Registry.Count()}
}

// Shutdown closes every live connection, waiting at most CloseTimeout per
// connection.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	log.Info().Str("module", "orch").Int("active", o.Registry.Count()).Msg("shutdown")
	o.Registry.CloseAll(ctx, o.CloseTimeout)
}

// ResolveStream maps a requested stream path to a source URL.
func (o *Orchestrator) ResolveStream(path string) string {
	if path == "" || path == CameraAlias {
		return o.DefaultStreamURL
	}
	return path
}

func (o *Orchestrator) watchState(h *app.Handle) {
	logger := log.With().
		Str("module", "orch").
		Str("conn_id", string(h.ID)).
		Str("role", string(h.Role)).
		Logger()

	states := h.Conn().States()
	for {
		select {
		case <-o.baseCtx().Done():
			return
		case s, ok := <-states:
			if !ok {
				o.Registry.Unregister(h.ID)
				return
			}
			h.SetState(s)
			logger.Info().Str("state", string(s)).Msg("connection state")
			if s.Terminal() {
				o.Registry.Unregister(h.ID)
				return
			}
		}
	}
}

func (o *Orchestrator) baseCtx() context.Context {
	if o.ctx == nil {
		return context.Background()
	}
	return o.ctx
}
