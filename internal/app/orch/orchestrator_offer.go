package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/CamBridge/internal/app"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/rs/zerolog/log"
)

// HandlePublisherOffer answers an offer with media from the requested
// stream. On any failure the connection is unregistered before returning.
func (o *Orchestrator) HandlePublisherOffer(ctx context.Context, req OfferRequest) (domain.SessionDescription, error) {
	if err := req.Offer.ValidateOffer(); err != nil {
		return domain.SessionDescription{}, err
	}
	streamPath := req.StreamPath
	if streamPath == "" {
		streamPath = CameraAlias
	}
	h, err := o.open(ctx, domain.RolePublisher, req.Client, streamPath)
	if err != nil {
		return domain.SessionDescription{}, err
	}

	logger := log.With().
		Str("module", "orch").
		Str("conn_id", string(h.ID)).
		Str("stream_path", streamPath).
		Logger()

	player, err := o.Media.Open(ctx, o.ResolveStream(streamPath))
	if err != nil {
		logger.Error().Err(err).Msg("media source")
		o.Registry.Unregister(h.ID)
		if !errors.Is(err, domain.ErrSourceUnreachable) {
			err = fmt.Errorf("%w: %w", domain.ErrSourceUnreachable, err)
		}
		return domain.SessionDescription{}, err
	}
	if !h.AttachPlayer(player) {
		// Released while the source was opening (shutdown or a terminal
		// state); the player was never owned by the handle.
		player.Stop()
		logger.Warn().Msg("connection released during media setup")
		return domain.SessionDescription{}, o.releasedErr()
	}

	tracks := player.Tracks()
	for _, track := range tracks {
		if err := h.Conn().AddTrack(track); err != nil {
			logger.Error().Err(err).Str("track_id", track.ID()).Msg("add track")
			o.Registry.Unregister(h.ID)
			return domain.SessionDescription{}, fmt.Errorf("%w: add track: %w", domain.ErrNegotiation, err)
		}
	}
	logger.Info().Int("tracks", len(tracks)).Msg("media attached")

	return o.negotiate(ctx, h, req.Offer)
}

// HandleSubscriberOffer answers an offer without attaching any media.
func (o *Orchestrator) HandleSubscriberOffer(ctx context.Context, req OfferRequest) (domain.SessionDescription, error) {
	if err := req.Offer.ValidateOffer(); err != nil {
		return domain.SessionDescription{}, err
	}
	h, err := o.open(ctx, domain.RoleSubscriber, req.Client, "")
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return o.negotiate(ctx, h, req.Offer)
}

// open creates the connection, registers it in state new and starts
// following its state notifications.
func (o *Orchestrator) open(ctx context.Context, role domain.Role, client, streamPath string) (*app.Handle, error) {
	conn, err := o.Engine.CreateConnection(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("role", string(role)).Msg("create connection")
		if !errors.Is(err, domain.ErrNegotiation) {
			err = fmt.Errorf("%w: create connection: %w", domain.ErrNegotiation, err)
		}
		return nil, err
	}

	h := app.NewHandle(role, client, conn)
	h.StreamPath = streamPath
	if err := o.Registry.Register(h); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go o.watchState(h)
	return h, nil
}

func (o *Orchestrator) negotiate(ctx context.Context, h *app.Handle, offer domain.SessionDescription) (domain.SessionDescription, error) {
	fail := func(step string, err error) (domain.SessionDescription, error) {
		log.Error().Err(err).Str("module", "orch").Str("conn_id", string(h.ID)).Str("step", step).Msg("negotiation failed")
		o.Registry.Unregister(h.ID)
		if errors.Is(err, domain.ErrNegotiation) {
			return domain.SessionDescription{}, err
		}
		return domain.SessionDescription{}, fmt.Errorf("%w: %s: %w", domain.ErrNegotiation, step, err)
	}

	conn := h.Conn()
	if err := conn.SetRemoteDescription(offer); err != nil {
		return fail("set remote description", err)
	}
	answer, err := conn.CreateAnswer()
	if err != nil {
		return fail("create answer", err)
	}
	if err := conn.SetLocalDescription(ctx, answer); err != nil {
		return fail("set local description", err)
	}
	local, ok := conn.LocalDescription()
	if !ok {
		return fail("local description", errors.New("no local description"))
	}
	if h.Released() {
		log.Warn().Str("module", "orch").Str("conn_id", string(h.ID)).Msg("connection released during negotiation")
		return domain.SessionDescription{}, o.releasedErr()
	}

	log.Info().Str("module", "orch").Str("conn_id", string(h.ID)).Str("role", string(h.Role)).Msg("answer ready")
	return local, nil
}

// releasedErr explains why a handle went away under a running request.
func (o *Orchestrator) releasedErr() error {
	if o.Registry.Closed() {
		return app.ErrRegistryClosed
	}
	return fmt.Errorf("%w: connection closed during setup", domain.ErrNegotiation)
}
