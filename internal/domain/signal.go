package domain

const (
	SDPTypeOffer  = "offer"
	SDPTypeAnswer = "answer"
)

// SessionDescription is an SDP payload as exchanged with browsers.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ValidateOffer checks the description is a non-empty offer.
func (d SessionDescription) ValidateOffer() error {
	if d.Type != SDPTypeOffer || d.SDP == "" {
		return ErrInvalidOffer
	}
	return nil
}

// Envelope is what the signaling mailbox stores per slot.
type Envelope = SessionDescription
