package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/CamBridge/internal/adapters/http"
	"github.com/dkeye/CamBridge/internal/adapters/media"
	"github.com/dkeye/CamBridge/internal/adapters/rtc"
	wsignal "github.com/dkeye/CamBridge/internal/adapters/signal"
	"github.com/dkeye/CamBridge/internal/app"
	"github.com/dkeye/CamBridge/internal/app/orch"
	"github.com/dkeye/CamBridge/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	if cfg.Secret == "" {
		cfg.Secret = uuid.NewString()
		log.Warn().Msg("no session secret configured, sessions will not survive a restart")
	}

	turn, err := app.NewTurnStore(cfg.ICEServers)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ice servers")
	}
	engine, err := rtc.NewEngine(turn, cfg.GatherTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create webrtc engine")
	}

	reg := app.NewRegistry()
	mailbox := app.NewMailbox()
	source := media.NewRTSPSource(cfg.RTSPTimeout)
	o := orch.New(ctx, reg, engine, source, cfg.DefaultStreamURL, cfg.CloseTimeout)

	r := router.SetupRouter(cfg, router.Deps{
		Orch:    o,
		Turn:    turn,
		Mailbox: mailbox,
		Signal:  wsignal.NewMailboxWSController(ctx, mailbox, cfg.PingPeriod),
		Version: version,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("version", version).Msg("CamBridge server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Connections get their own budget so a slow HTTP drain does not cut
	// media teardown short.
	o.Shutdown(context.Background())
	log.Info().Msg("Server exited gracefully")
}

func setupLogging(cfg *config.Config) {
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
