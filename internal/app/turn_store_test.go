package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/CamBridge/internal/domain"
)

func str(s string) *string { return &s }

func TestTurnStoreReplaceAndGet(t *testing.T) {
	t.Parallel()

	s, err := NewTurnStore(domain.DefaultICEServers())
	if err != nil {
		t.Fatalf("NewTurnStore: %v", err)
	}
	if got := len(s.Get()); got != 2 {
		t.Fatalf("initial servers=%d, want 2", got)
	}

	next := []domain.IceServer{{
		URLs:       []string{"turn:turn.example.org:3478"},
		Username:   str("u"),
		Credential: str("p"),
	}}
	stored, err := s.Replace(next)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(stored) != 1 || stored[0].URLs[0] != "turn:turn.example.org:3478" {
		t.Fatalf("stored=%+v", stored)
	}

	got := s.Get()
	if len(got) != 1 || *got[0].Username != "u" || *got[0].Credential != "p" {
		t.Fatalf("Get()=%+v", got)
	}
}

func TestTurnStoreInvalidReplaceKeepsPrevious(t *testing.T) {
	t.Parallel()

	s, err := NewTurnStore(domain.DefaultICEServers())
	if err != nil {
		t.Fatalf("NewTurnStore: %v", err)
	}
	before := s.Get()

	_, err = s.Replace([]domain.IceServer{
		{URLs: []string{"stun:ok.example.org"}},
		{URLs: nil},
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err=%v, want ErrInvalidConfig", err)
	}

	after := s.Get()
	if len(after) != len(before) {
		t.Fatalf("servers=%d after failed replace, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i].URLs[0] != before[i].URLs[0] {
			t.Fatalf("servers[%d]=%v, want %v", i, after[i].URLs, before[i].URLs)
		}
	}
}

func TestTurnStoreEmptyListIsValid(t *testing.T) {
	t.Parallel()

	s, err := NewTurnStore(domain.DefaultICEServers())
	if err != nil {
		t.Fatalf("NewTurnStore: %v", err)
	}
	if _, err := s.Replace([]domain.IceServer{}); err != nil {
		t.Fatalf("Replace(empty): %v", err)
	}
	if got := s.Get(); got == nil || len(got) != 0 {
		t.Fatalf("Get()=%v, want empty non-nil", got)
	}
}

func TestTurnStoreGetReturnsCopy(t *testing.T) {
	t.Parallel()

	s, err := NewTurnStore([]domain.IceServer{{URLs: []string{"stun:a"}, Username: str("x")}})
	if err != nil {
		t.Fatalf("NewTurnStore: %v", err)
	}
	got := s.Get()
	got[0].URLs[0] = "stun:mutated"
	*got[0].Username = "mutated"

	again := s.Get()
	if again[0].URLs[0] != "stun:a" || *again[0].Username != "x" {
		t.Fatalf("store mutated through Get: %+v", again[0])
	}
}

func TestTurnStoreConcurrentReplaceIsAtomic(t *testing.T) {
	t.Parallel()

	a := []domain.IceServer{{URLs: []string{"stun:a"}}, {URLs: []string{"stun:a"}}}
	b := []domain.IceServer{{URLs: []string{"stun:b"}}, {URLs: []string{"stun:b"}}, {URLs: []string{"stun:b"}}}

	s, err := NewTurnStore(a)
	if err != nil {
		t.Fatalf("NewTurnStore: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			src := a
			if i%2 == 0 {
				src = b
			}
			for j := 0; j < 200; j++ {
				if _, err := s.Replace(src); err != nil {
					t.Errorf("Replace: %v", err)
					return
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := s.Get()
				first := got[0].URLs[0]
				want := 2
				if first == "stun:b" {
					want = 3
				}
				if len(got) != want {
					t.Errorf("torn read: %d servers starting with %s", len(got), first)
					return
				}
				for _, srv := range got {
					if srv.URLs[0] != first {
						t.Errorf("torn read: mixed servers %v", got)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}
