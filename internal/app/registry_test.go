package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/CamBridge/internal/core/coretest"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/pion/webrtc/v4"
)

// orderPlayer records how many closes the connection had seen when Stop ran.
type orderPlayer struct {
	conn         *coretest.FakeConn
	closesAtStop int
	stops        int
}

func (p *orderPlayer) Tracks() []webrtc.TrackLocal { return nil }
func (p *orderPlayer) Stop() {
	p.stops++
	p.closesAtStop = p.conn.CloseCount()
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	h := NewHandle(domain.RoleSubscriber, "c1", coretest.NewFakeConn())
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(h); err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if got := r.Count(); got != 1 {
		t.Fatalf("Count()=%d, want 1", got)
	}
	if got, ok := r.Get(h.ID); !ok || got != h {
		t.Fatalf("Get(%s)=%v,%v", h.ID, got, ok)
	}
}

func TestRegistryUnregisterReleasesOnce(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	conn := coretest.NewFakeConn()
	h := NewHandle(domain.RolePublisher, "c1", conn)
	p := &orderPlayer{conn: conn}
	h.AttachPlayer(p)
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !r.Unregister(h.ID) {
		t.Fatalf("Unregister()=false, want true")
	}
	if r.Unregister(h.ID) {
		t.Fatalf("second Unregister()=true, want false")
	}
	if got := r.Count(); got != 0 {
		t.Fatalf("Count()=%d, want 0", got)
	}
	if p.stops != 1 {
		t.Fatalf("player stops=%d, want 1", p.stops)
	}
	if p.closesAtStop != 0 {
		t.Fatalf("player stopped after connection close")
	}
	if got := conn.CloseCount(); got != 1 {
		t.Fatalf("conn closes=%d, want 1", got)
	}
	if h.HasPlayer() {
		t.Fatalf("handle still owns player after release")
	}
}

func TestRegistryUnregisterSkipsCloseWhenAlreadyClosed(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	conn := coretest.NewFakeConn()
	h := NewHandle(domain.RoleSubscriber, "c1", conn)
	_ = r.Register(h)
	h.SetState(domain.StateClosed)

	r.Unregister(h.ID)
	if got := conn.CloseCount(); got != 0 {
		t.Fatalf("conn closes=%d, want 0 for a closed connection", got)
	}
}

func TestRegistryUnregisterClosesFailed(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	conn := coretest.NewFakeConn()
	h := NewHandle(domain.RoleSubscriber, "c1", conn)
	_ = r.Register(h)
	h.SetState(domain.StateFailed)

	r.Unregister(h.ID)
	if got := conn.CloseCount(); got != 1 {
		t.Fatalf("conn closes=%d, want 1 for a failed connection", got)
	}
}

func TestRegistrySnapshotOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := NewHandle(domain.RolePublisher, "a", coretest.NewFakeConn())
	first.StreamPath = "camera"
	second := NewHandle(domain.RoleSubscriber, "b", coretest.NewFakeConn())
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)
	_ = r.Register(second)
	_ = r.Register(first)

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len=%d, want 2", len(snap))
	}
	if snap[0].ID != first.ID || snap[1].ID != second.ID {
		t.Fatalf("snapshot order=%s,%s", snap[0].ID, snap[1].ID)
	}
	if snap[0].StreamPath != "camera" || snap[0].State != domain.StateNew {
		t.Fatalf("snapshot[0]=%+v", snap[0])
	}
}

func TestRegistryCloseAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var conns []*coretest.FakeConn
	for i := 0; i < 5; i++ {
		c := coretest.NewFakeConn()
		conns = append(conns, c)
		if err := r.Register(NewHandle(domain.RoleSubscriber, "c", c)); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	r.CloseAll(context.Background(), time.Second)

	if got := r.Count(); got != 0 {
		t.Fatalf("Count()=%d after CloseAll, want 0", got)
	}
	for i, c := range conns {
		if c.CloseCount() != 1 {
			t.Fatalf("conn %d closes=%d, want 1", i, c.CloseCount())
		}
	}
}

func TestRegistryCloseAllForcesHangingClose(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	hang := coretest.NewFakeConn()
	hang.BlockClose = make(chan struct{})
	defer close(hang.BlockClose)
	_ = r.Register(NewHandle(domain.RolePublisher, "c", hang))
	_ = r.Register(NewHandle(domain.RoleSubscriber, "c", coretest.NewFakeConn()))

	start := time.Now()
	r.CloseAll(context.Background(), 50*time.Millisecond)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("CloseAll took %v with a hanging close", elapsed)
	}
	if got := r.Count(); got != 0 {
		t.Fatalf("Count()=%d, want 0", got)
	}
}

func TestRegistryCloseAllEmpty(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.CloseAll(context.Background(), time.Second)
	if got := r.Count(); got != 0 {
		t.Fatalf("Count()=%d, want 0", got)
	}
}

func TestRegistryRefusesAfterCloseAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.CloseAll(context.Background(), time.Second)

	err := r.Register(NewHandle(domain.RoleSubscriber, "c", coretest.NewFakeConn()))
	if !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("err=%v, want ErrRegistryClosed", err)
	}
}

func TestRegistryConcurrentUnregister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	conn := coretest.NewFakeConn()
	h := NewHandle(domain.RoleSubscriber, "c", conn)
	_ = r.Register(h)

	var wg sync.WaitGroup
	var mu sync.Mutex
	removed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Unregister(h.ID) {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if removed != 1 {
		t.Fatalf("removed=%d, want 1", removed)
	}
	if got := conn.CloseCount(); got != 1 {
		t.Fatalf("conn closes=%d, want 1", got)
	}
}

func TestAttachPlayerAfterRelease(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	h := NewHandle(domain.RolePublisher, "c", coretest.NewFakeConn())
	_ = r.Register(h)
	r.Unregister(h.ID)

	p := coretest.NewFakePlayer()
	if h.AttachPlayer(p) {
		t.Fatalf("AttachPlayer()=true on a released handle")
	}
	if !h.Released() || h.HasPlayer() {
		t.Fatalf("released=%v hasPlayer=%v, want true,false", h.Released(), h.HasPlayer())
	}
	if got := p.StopCount(); got != 0 {
		t.Fatalf("player stops=%d, caller keeps ownership", got)
	}
}
