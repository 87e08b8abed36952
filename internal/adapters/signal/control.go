package signal

import "github.com/dkeye/CamBridge/internal/domain"

func (ctl *MailboxWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

// sendState sends the full mailbox content, as GET /signaling/offer and
// /signaling/answer would.
func (ctl *MailboxWSController) sendState(conn *WsSignalConn) {
	resp := struct {
		Type       string           `json:"type"`
		Offer      *domain.Envelope `json:"offer"`
		Answer     *domain.Envelope `json:"answer"`
		StreamPath *string          `json:"stream_path"`
	}{
		Type: "state",
	}
	if offer, sp, ok := ctl.Mailbox.Offer(); ok {
		resp.Offer = &offer
		resp.StreamPath = sp
	}
	if answer, ok := ctl.Mailbox.Answer(); ok {
		resp.Answer = &answer
	}
	ctl.sendJSON(conn, resp)
}
