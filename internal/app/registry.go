package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrRegistryClosed = errors.New("registry closed")

// Registry owns the set of live connection handles.
type Registry struct {
	mu      sync.RWMutex
	handles map[domain.ConnID]*Handle
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[domain.ConnID]*Handle),
	}
}

// Register adds h to the live set. Registering the same handle twice is a
// no-op. After CloseAll has started it fails with ErrRegistryClosed.
func (r *Registry) Register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.handles[h.ID]; ok {
		return nil
	}
	r.handles[h.ID] = h
	log.Info().Str("module", "app.registry").Str("conn_id", string(h.ID)).Str("role", string(h.Role)).Msg("registered")
	return nil
}

// Unregister removes the handle and releases its media and connection.
// It reports whether the handle was live; a second call is a no-op.
func (r *Registry) Unregister(id domain.ConnID) bool {
	r.mu.Lock()
	h, ok := r.handles[id]
	if ok {
		delete(r.handles, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	h.release()
	log.Info().Str("module", "app.registry").Str("conn_id", string(id)).Str("role", string(h.Role)).Msg("unregistered")
	return true
}

// Closed reports whether CloseAll has started.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Registry) Get(id domain.ConnID) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Snapshot lists live handles, oldest first.
func (r *Registry) Snapshot() []HandleInfo {
	r.mu.RLock()
	out := make([]HandleInfo, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h.Info())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// CloseAll releases every live handle concurrently. Each release gets at
// most timeout; handles that do not finish in time are removed anyway.
// The registry refuses new handles afterwards.
func (r *Registry) CloseAll(ctx context.Context, timeout time.Duration) {
	r.mu.Lock()
	r.closed = true
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Int("count", len(handles)).Msg("closing all connections")

	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			done := make(chan struct{})
			go func() {
				h.release()
				close(done)
			}()

			timer := time.NewTimer(timeout)
			defer timer.Stop()
			select {
			case <-done:
			case <-timer.C:
				log.Warn().Str("module", "app.registry").Str("conn_id", string(h.ID)).Dur("timeout", timeout).Msg("close not acknowledged, forcing removal")
			case <-ctx.Done():
				log.Warn().Err(ctx.Err()).Str("module", "app.registry").Str("conn_id", string(h.ID)).Msg("close abandoned, forcing removal")
			}
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	for _, h := range handles {
		delete(r.handles, h.ID)
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Msg("all connections closed")
}
