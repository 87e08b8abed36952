package http

import (
	"fmt"
	"net/http"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/gin-gonic/gin"
)

type saveOfferRequest struct {
	Type       string  `json:"type"`
	SDP        string  `json:"sdp"`
	StreamPath *string `json:"stream_path"`
}

func (a *api) saveOffer(c *gin.Context) {
	var req saveOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", domain.ErrInvalidOffer, err))
		return
	}
	a.Mailbox.PutOffer(domain.Envelope{Type: req.Type, SDP: req.SDP}, req.StreamPath)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Offer saved"})
}

func (a *api) getOffer(c *gin.Context) {
	offer, streamPath, ok := a.Mailbox.Offer()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "empty", "offer": nil, "stream_path": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "offer": offer, "stream_path": streamPath})
}

func (a *api) saveAnswer(c *gin.Context) {
	var env domain.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", domain.ErrInvalidOffer, err))
		return
	}
	a.Mailbox.PutAnswer(env)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Answer saved"})
}

func (a *api) getAnswer(c *gin.Context) {
	answer, ok := a.Mailbox.Answer()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "empty", "answer": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "answer": answer})
}

func (a *api) clearSignaling(c *gin.Context) {
	a.Mailbox.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Signaling data cleared"})
}
