package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/CamBridge/internal/domain"
)

func offer(sdp string) domain.Envelope {
	return domain.Envelope{Type: domain.SDPTypeOffer, SDP: sdp}
}

func TestMailboxEmpty(t *testing.T) {
	t.Parallel()

	m := NewMailbox()
	if _, _, ok := m.Offer(); ok {
		t.Fatalf("Offer() ok on empty mailbox")
	}
	if _, ok := m.Answer(); ok {
		t.Fatalf("Answer() ok on empty mailbox")
	}
}

func TestMailboxLastWriteWins(t *testing.T) {
	t.Parallel()

	m := NewMailbox()
	m.PutOffer(offer("v=0 first"), str("cam1"))
	m.PutOffer(offer("v=0 second"), nil)

	got, sp, ok := m.Offer()
	if !ok {
		t.Fatalf("Offer() not ok")
	}
	if got.SDP != "v=0 second" {
		t.Fatalf("sdp=%q, want second", got.SDP)
	}
	if sp != nil {
		t.Fatalf("stream_path=%q, want nil", *sp)
	}
}

func TestMailboxPutOfferKeepsAnswer(t *testing.T) {
	t.Parallel()

	m := NewMailbox()
	m.PutAnswer(domain.Envelope{Type: domain.SDPTypeAnswer, SDP: "v=0 a"})
	m.PutOffer(offer("v=0 o"), str("cam1"))

	ans, ok := m.Answer()
	if !ok || ans.SDP != "v=0 a" {
		t.Fatalf("Answer()=%+v,%v, want stale answer kept", ans, ok)
	}
	_, sp, _ := m.Offer()
	if sp == nil || *sp != "cam1" {
		t.Fatalf("stream_path=%v, want cam1", sp)
	}
}

func TestMailboxClear(t *testing.T) {
	t.Parallel()

	m := NewMailbox()
	m.PutOffer(offer("v=0 o"), str("cam1"))
	m.PutAnswer(domain.Envelope{Type: domain.SDPTypeAnswer, SDP: "v=0 a"})
	m.Clear()

	if _, sp, ok := m.Offer(); ok || sp != nil {
		t.Fatalf("offer survived Clear")
	}
	if _, ok := m.Answer(); ok {
		t.Fatalf("answer survived Clear")
	}
}

func TestMailboxStreamPathIsCopied(t *testing.T) {
	t.Parallel()

	m := NewMailbox()
	p := "cam1"
	m.PutOffer(offer("v=0"), &p)
	p = "changed"

	_, sp, _ := m.Offer()
	if *sp != "cam1" {
		t.Fatalf("stream_path=%q, want cam1", *sp)
	}
}

func TestMailboxWatch(t *testing.T) {
	t.Parallel()

	m := NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())
	events := m.Watch(ctx)

	m.PutOffer(offer("v=0 o"), str("cam1"))
	m.PutAnswer(domain.Envelope{Type: domain.SDPTypeAnswer, SDP: "v=0 a"})
	m.Clear()

	want := []MailboxEventType{MailboxOffer, MailboxAnswer, MailboxCleared}
	for i, w := range want {
		select {
		case ev := <-events:
			if ev.Type != w {
				t.Fatalf("event %d type=%s, want %s", i, ev.Type, w)
			}
			if w == MailboxOffer && (ev.StreamPath == nil || *ev.StreamPath != "cam1") {
				t.Fatalf("offer event stream_path=%v", ev.StreamPath)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}

	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("unexpected event after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("watch channel not closed after cancel")
	}
}

func TestMailboxSlowWatcherDoesNotBlock(t *testing.T) {
	t.Parallel()

	m := NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = m.Watch(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < watcherBuffer*4; i++ {
			m.PutOffer(offer("v=0"), nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("PutOffer blocked on a full watcher")
	}
}

func TestMailboxWatchOrderMatchesStore(t *testing.T) {
	t.Parallel()

	for round := 0; round < 50; round++ {
		m := NewMailbox()
		ctx, cancel := context.WithCancel(context.Background())
		events := m.Watch(ctx)

		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m.PutOffer(offer(fmt.Sprintf("v=0 %d", i)), nil)
			}(i)
		}
		wg.Wait()

		var last MailboxEvent
		for i := 0; i < writers; i++ {
			last = <-events
		}
		stored, _, _ := m.Offer()
		if last.Offer == nil || last.Offer.SDP != stored.SDP {
			t.Fatalf("round %d: last event %+v, stored %q", round, last.Offer, stored.SDP)
		}
		cancel()
	}
}
