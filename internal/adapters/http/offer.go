package http

import (
	"fmt"
	"net/http"

	"github.com/dkeye/CamBridge/internal/app/orch"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/gin-gonic/gin"
)

func (a *api) bindOffer(c *gin.Context) (orch.OfferRequest, bool) {
	var offer domain.SessionDescription
	if err := c.ShouldBindJSON(&offer); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", domain.ErrInvalidOffer, err))
		return orch.OfferRequest{}, false
	}
	return orch.OfferRequest{
		Offer:  offer,
		Client: c.GetString(clientTokenKey),
	}, true
}

// POST /offer?path={stream}
func (a *api) publisherOffer(c *gin.Context) {
	req, ok := a.bindOffer(c)
	if !ok {
		return
	}
	req.StreamPath = c.Query("path")

	answer, err := a.Orch.HandlePublisherOffer(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// POST /subscriber/offer
func (a *api) subscriberOffer(c *gin.Context) {
	req, ok := a.bindOffer(c)
	if !ok {
		return
	}
	answer, err := a.Orch.HandleSubscriberOffer(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
