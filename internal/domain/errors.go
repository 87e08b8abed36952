package domain

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrInvalidOffer      = errors.New("invalid offer")
	ErrSourceUnreachable = errors.New("media source unreachable")
	ErrNegotiation       = errors.New("negotiation failed")
	ErrRateLimited       = errors.New("rate limited")
)
