// Package coretest provides in-memory engine and media fakes for tests.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dkeye/CamBridge/internal/core"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Steps a FakeConn can be told to fail at.
const (
	StepAddTrack     = "add_track"
	StepSetRemote    = "set_remote"
	StepCreateAnswer = "create_answer"
	StepSetLocal     = "set_local"
	StepLocalDesc    = "local_description"
)

const FakeAnswerSDP = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=fake\r\n"

const stateBuffer = 16

var ErrInjected = errors.New("injected failure")

type FakeConn struct {
	// FailAt names the step that returns ErrInjected.
	FailAt string
	// BlockClose, when set, makes Close wait until it is closed.
	BlockClose chan struct{}

	mu     sync.Mutex
	calls  []string
	tracks []webrtc.TrackLocal
	local  *domain.SessionDescription
	states chan domain.ConnState
	done   bool

	closes atomic.Int32
}

func NewFakeConn() *FakeConn {
	return &FakeConn{states: make(chan domain.ConnState, stateBuffer)}
}

func (f *FakeConn) record(step string) error {
	f.mu.Lock()
	f.calls = append(f.calls, step)
	f.mu.Unlock()
	if f.FailAt == step {
		return fmt.Errorf("%s: %w", step, ErrInjected)
	}
	return nil
}

func (f *FakeConn) AddTrack(track webrtc.TrackLocal) error {
	if err := f.record(StepAddTrack); err != nil {
		return err
	}
	f.mu.Lock()
	f.tracks = append(f.tracks, track)
	f.mu.Unlock()
	return nil
}

func (f *FakeConn) SetRemoteDescription(domain.SessionDescription) error {
	return f.record(StepSetRemote)
}

func (f *FakeConn) CreateAnswer() (domain.SessionDescription, error) {
	if err := f.record(StepCreateAnswer); err != nil {
		return domain.SessionDescription{}, err
	}
	return domain.SessionDescription{Type: domain.SDPTypeAnswer, SDP: FakeAnswerSDP}, nil
}

func (f *FakeConn) SetLocalDescription(_ context.Context, desc domain.SessionDescription) error {
	if err := f.record(StepSetLocal); err != nil {
		return err
	}
	f.mu.Lock()
	f.local = &desc
	f.mu.Unlock()
	return nil
}

func (f *FakeConn) LocalDescription() (domain.SessionDescription, bool) {
	if f.FailAt == StepLocalDesc {
		return domain.SessionDescription{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.local == nil {
		return domain.SessionDescription{}, false
	}
	return *f.local, true
}

func (f *FakeConn) States() <-chan domain.ConnState { return f.states }

// Emit simulates an engine state notification.
func (f *FakeConn) Emit(s domain.ConnState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.states <- s
	if s.Terminal() {
		f.done = true
		close(f.states)
	}
}

func (f *FakeConn) Close() error {
	f.closes.Add(1)
	f.record("close")
	if f.BlockClose != nil {
		<-f.BlockClose
	}
	f.Emit(domain.StateClosed)
	return nil
}

func (f *FakeConn) CloseCount() int { return int(f.closes.Load()) }

func (f *FakeConn) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeConn) Tracks() []webrtc.TrackLocal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.TrackLocal(nil), f.tracks...)
}

// FakeEngine hands out FakeConns.
type FakeEngine struct {
	// CreateErr makes CreateConnection fail.
	CreateErr error
	// Prepare, if set, customizes each new connection.
	Prepare func(*FakeConn)

	mu    sync.Mutex
	conns []*FakeConn
}

var _ core.Engine = (*FakeEngine)(nil)

func (e *FakeEngine) CreateConnection(context.Context) (core.PeerConnection, error) {
	if e.CreateErr != nil {
		return nil, e.CreateErr
	}
	c := NewFakeConn()
	if e.Prepare != nil {
		e.Prepare(c)
	}
	e.mu.Lock()
	e.conns = append(e.conns, c)
	e.mu.Unlock()
	return c, nil
}

func (e *FakeEngine) Conns() []*FakeConn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*FakeConn(nil), e.conns...)
}

// Last returns the most recently created connection.
func (e *FakeEngine) Last() *FakeConn {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.conns) == 0 {
		return nil
	}
	return e.conns[len(e.conns)-1]
}

type FakePlayer struct {
	tracks []webrtc.TrackLocal
	stops  atomic.Int32
}

func NewFakePlayer(tracks ...webrtc.TrackLocal) *FakePlayer {
	return &FakePlayer{tracks: tracks}
}

func (p *FakePlayer) Tracks() []webrtc.TrackLocal { return p.tracks }
func (p *FakePlayer) Stop()                       { p.stops.Add(1) }
func (p *FakePlayer) StopCount() int              { return int(p.stops.Load()) }

// FakeSource returns players with the configured tracks.
type FakeSource struct {
	Err   error
	Video bool
	Audio bool

	mu      sync.Mutex
	urls    []string
	players []*FakePlayer
}

var _ core.MediaSource = (*FakeSource)(nil)

func (s *FakeSource) Open(_ context.Context, url string) (core.MediaPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	if s.Err != nil {
		return nil, s.Err
	}
	var tracks []webrtc.TrackLocal
	if s.Video {
		tracks = append(tracks, MustTrack(webrtc.MimeTypeH264, "video"))
	}
	if s.Audio {
		tracks = append(tracks, MustTrack(webrtc.MimeTypeOpus, "audio"))
	}
	p := NewFakePlayer(tracks...)
	s.players = append(s.players, p)
	return p, nil
}

func (s *FakeSource) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

func (s *FakeSource) Players() []*FakePlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakePlayer(nil), s.players...)
}

func MustTrack(mime, id string) *webrtc.TrackLocalStaticRTP {
	t, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{MimeType: mime}, id, "test")
	if err != nil {
		panic(err)
	}
	return t
}
