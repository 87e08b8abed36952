package http

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	clientTokenKey = "client_token"
	// clientTokenFreshKey marks a token minted for a request without a
	// session cookie.
	clientTokenFreshKey = "client_token_fresh"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session. It tags connections and keys the offer rate limit.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			c.Set(clientTokenFreshKey, true)
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func CORSMiddleware(allowed []string) gin.HandlerFunc {
	wildcard := slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin == "":
		case wildcard:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		case slices.Contains(allowed, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware rejects callers that exceed their offer budget.
// Requests without a session cookie share one bucket per client IP.
func RateLimitMiddleware(rl *OfferRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.GetString(clientTokenKey)
		if client == "" || c.GetBool(clientTokenFreshKey) {
			client = "ip:" + c.ClientIP()
		}
		if !rl.Allow(client) {
			log.Warn().Str("module", "adapters.http").Str("client", client).Msg("offer rate limited")
			abortWithError(c, fmt.Errorf("%w: too many offers", domain.ErrRateLimited))
			return
		}
		c.Next()
	}
}
