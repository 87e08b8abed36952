package app

import (
	"fmt"
	"sync/atomic"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// TurnStore holds the ICE/TURN servers handed out to clients and used for
// new peer connections. Replace is all-or-nothing.
type TurnStore struct {
	servers atomic.Pointer[[]domain.IceServer]
}

func NewTurnStore(initial []domain.IceServer) (*TurnStore, error) {
	s := &TurnStore{}
	if _, err := s.Replace(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a copy of the current servers in their stored order.
func (s *TurnStore) Get() []domain.IceServer {
	p := s.servers.Load()
	if p == nil {
		return []domain.IceServer{}
	}
	return domain.CloneIceServers(*p)
}

// Replace validates every descriptor before swapping. On error the previous
// servers stay in place.
func (s *TurnStore) Replace(servers []domain.IceServer) ([]domain.IceServer, error) {
	for i, srv := range servers {
		if err := srv.Validate(); err != nil {
			return nil, fmt.Errorf("servers[%d]: %w", i, err)
		}
	}
	next := domain.CloneIceServers(servers)
	s.servers.Store(&next)
	log.Info().Str("module", "app.turn").Int("servers", len(next)).Msg("turn config replaced")
	return domain.CloneIceServers(next), nil
}
