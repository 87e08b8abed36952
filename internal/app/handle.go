package app

import (
	"sync"
	"time"

	"github.com/dkeye/CamBridge/internal/core"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// Handle is one negotiated peer connection and the media it owns.
// Its state is only changed from the engine's state notifications.
type Handle struct {
	ID         domain.ConnID
	Role       domain.Role
	Client     string
	StreamPath string
	CreatedAt  time.Time

	conn core.PeerConnection

	mu       sync.RWMutex
	state    domain.ConnState
	player   core.MediaPlayer
	released bool

	releaseOnce sync.Once
}

func NewHandle(role domain.Role, client string, conn core.PeerConnection) *Handle {
	return &Handle{
		ID:        domain.NewConnID(),
		Role:      role,
		Client:    client,
		CreatedAt: time.Now(),
		conn:      conn,
		state:     domain.StateNew,
	}
}

func (h *Handle) Conn() core.PeerConnection { return h.conn }

func (h *Handle) State() domain.ConnState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// SetState records an engine-reported state.
func (h *Handle) SetState(s domain.ConnState) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// AttachPlayer hands ownership of p to the handle. It returns false if the
// handle was already released; the caller then still owns p.
func (h *Handle) AttachPlayer(p core.MediaPlayer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return false
	}
	h.player = p
	return true
}

// Released reports whether the handle's resources have been let go.
func (h *Handle) Released() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.released
}

func (h *Handle) HasPlayer() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.player != nil
}

// release stops the owned media first, then closes the connection unless
// the engine already reported it closed. Runs at most once.
func (h *Handle) release() {
	h.releaseOnce.Do(func() {
		h.mu.Lock()
		player := h.player
		h.player = nil
		h.released = true
		state := h.state
		h.mu.Unlock()

		if player != nil {
			player.Stop()
		}
		if state == domain.StateClosed || h.conn == nil {
			return
		}
		if err := h.conn.Close(); err != nil {
			log.Error().Err(err).Str("module", "app.registry").Str("conn_id", string(h.ID)).Msg("close error")
		}
	})
}

type HandleInfo struct {
	ID         domain.ConnID    `json:"id"`
	Role       domain.Role      `json:"role"`
	State      domain.ConnState `json:"state"`
	StreamPath string           `json:"stream_path,omitempty"`
	Client     string           `json:"client,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (h *Handle) Info() HandleInfo {
	return HandleInfo{
		ID:         h.ID,
		Role:       h.Role,
		State:      h.State(),
		StreamPath: h.StreamPath,
		Client:     h.Client,
		CreatedAt:  h.CreatedAt,
	}
}
