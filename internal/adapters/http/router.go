package http

import (
	"net/http"

	"github.com/dkeye/CamBridge/internal/adapters/signal"
	"github.com/dkeye/CamBridge/internal/app"
	"github.com/dkeye/CamBridge/internal/app/orch"
	"github.com/dkeye/CamBridge/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Deps are the long-lived objects handlers work on.
type Deps struct {
	Orch    *orch.Orchestrator
	Turn    *app.TurnStore
	Mailbox *app.Mailbox
	Signal  *signal.MailboxWSController
	Version string
}

type api struct {
	Deps
}

func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware(cfg.CORSAllowOrigins))

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CamBridgeSessions", store))
	r.Use(ClientTokenMiddleware())

	a := &api{Deps: deps}
	limit := RateLimitMiddleware(NewOfferRateLimiter(cfg.OfferRate, cfg.OfferBurst))

	r.GET("/health", a.health)
	r.GET("/webrtc/health", a.health)
	r.GET("/server/version", a.version)
	r.GET("/connections", a.connections)

	r.GET("/ice-config", a.getICEConfig)
	r.GET("/turn-config", a.getTurnConfig)
	r.PUT("/turn-config", a.putTurnConfig)

	r.POST("/offer", limit, a.publisherOffer)
	r.POST("/publisher/offer", limit, a.publisherOffer)
	r.POST("/subscriber/offer", limit, a.subscriberOffer)

	sig := r.Group("/signaling")
	sig.POST("/offer", a.saveOffer)
	sig.GET("/offer", a.getOffer)
	sig.POST("/answer", a.saveAnswer)
	sig.GET("/answer", a.getAnswer)
	sig.DELETE("", a.clearSignaling)
	if deps.Signal != nil {
		sig.GET("/ws", func(c *gin.Context) {
			deps.Signal.HandleWatch(c)
		})
	}

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}

func (a *api) health(c *gin.Context) {
	c.JSON(http.StatusOK, a.Orch.Health())
}

func (a *api) version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": a.Version})
}

func (a *api) connections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": a.Orch.Registry.Snapshot()})
}
