package app

import (
	"context"
	"sync"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

type MailboxEventType string

const (
	MailboxOffer   MailboxEventType = "offer"
	MailboxAnswer  MailboxEventType = "answer"
	MailboxCleared MailboxEventType = "cleared"
)

// MailboxEvent is a notification sent to watchers after each mutation.
type MailboxEvent struct {
	Type       MailboxEventType `json:"type"`
	Offer      *domain.Envelope `json:"offer,omitempty"`
	Answer     *domain.Envelope `json:"answer,omitempty"`
	StreamPath *string          `json:"stream_path,omitempty"`
}

const watcherBuffer = 16

// Mailbox is a single-slot store-and-forward relay: at most one offer and
// one answer system-wide, last write wins.
type Mailbox struct {
	mu         sync.RWMutex
	offer      *domain.Envelope
	answer     *domain.Envelope
	streamPath *string

	watchMu  sync.Mutex
	watchers map[chan MailboxEvent]struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{watchers: make(map[chan MailboxEvent]struct{})}
}

// PutOffer overwrites the offer and stream path. The answer is left as is.
func (m *Mailbox) PutOffer(env domain.Envelope, streamPath *string) {
	var sp *string
	if streamPath != nil {
		v := *streamPath
		sp = &v
	}
	m.mu.Lock()
	m.offer = &env
	m.streamPath = sp
	m.notify(MailboxEvent{Type: MailboxOffer, Offer: &env, StreamPath: sp})
	m.mu.Unlock()

	log.Info().Str("module", "app.mailbox").Str("sdp_type", env.Type).Msg("offer stored")
}

// Offer reads without consuming.
func (m *Mailbox) Offer() (domain.Envelope, *string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.offer == nil {
		return domain.Envelope{}, nil, false
	}
	var sp *string
	if m.streamPath != nil {
		v := *m.streamPath
		sp = &v
	}
	return *m.offer, sp, true
}

func (m *Mailbox) PutAnswer(env domain.Envelope) {
	m.mu.Lock()
	m.answer = &env
	m.notify(MailboxEvent{Type: MailboxAnswer, Answer: &env})
	m.mu.Unlock()

	log.Info().Str("module", "app.mailbox").Str("sdp_type", env.Type).Msg("answer stored")
}

func (m *Mailbox) Answer() (domain.Envelope, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.answer == nil {
		return domain.Envelope{}, false
	}
	return *m.answer, true
}

// Clear resets offer, answer and stream path in one step.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.offer, m.answer, m.streamPath = nil, nil, nil
	m.notify(MailboxEvent{Type: MailboxCleared})
	m.mu.Unlock()

	log.Info().Str("module", "app.mailbox").Msg("cleared")
}

// Watch returns a channel of mailbox events. It is closed when ctx is done.
// Events are dropped for a watcher whose buffer is full.
func (m *Mailbox) Watch(ctx context.Context) <-chan MailboxEvent {
	ch := make(chan MailboxEvent, watcherBuffer)
	m.watchMu.Lock()
	m.watchers[ch] = struct{}{}
	m.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		m.watchMu.Lock()
		delete(m.watchers, ch)
		close(ch)
		m.watchMu.Unlock()
	}()
	return ch
}

// notify is called with m.mu held so watchers see mutations in store order.
// Lock order is mu, then watchMu.
func (m *Mailbox) notify(ev MailboxEvent) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for ch := range m.watchers {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("module", "app.mailbox").Str("event", string(ev.Type)).Msg("watcher backpressure, event dropped")
		}
	}
}
