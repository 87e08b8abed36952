package http

import (
	"fmt"
	"net/http"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type turnConfigRequest struct {
	Servers []domain.IceServer `json:"servers"`
}

// Config bodies use PureJSON: turn URLs may carry '&' in their query.
func (a *api) getICEConfig(c *gin.Context) {
	c.PureJSON(http.StatusOK, gin.H{"iceServers": a.Turn.Get()})
}

func (a *api) getTurnConfig(c *gin.Context) {
	c.PureJSON(http.StatusOK, gin.H{"servers": a.Turn.Get()})
}

func (a *api) putTurnConfig(c *gin.Context) {
	var req turnConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err))
		return
	}
	if req.Servers == nil {
		abortWithError(c, fmt.Errorf("%w: missing servers", domain.ErrInvalidConfig))
		return
	}
	servers, err := a.Turn.Replace(req.Servers)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("turn config rejected")
		abortWithError(c, err)
		return
	}
	c.PureJSON(http.StatusOK, gin.H{"status": "ok", "servers": servers})
}
