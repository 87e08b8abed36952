package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/CamBridge/internal/app"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 64 * 1024
)

func (ctl *MailboxWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *MailboxWSController) eventPump(ctx context.Context, c *WsSignalConn, events <-chan app.MailboxEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			ctl.sendJSON(c, ev)
		}
	}
}

func (ctl *MailboxWSController) readPump(ctx context.Context, cancel context.CancelFunc, client string, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("client", client).Msg("readPump closing")
		cancel()
		c.Close()
	}()

	// A peer that stops answering pings is dropped after pongWait.
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait())); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("readPump set deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("client", client).Msg("readPump read error")
				}
				return
			}
			if err := c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait())); err != nil {
				return
			}
			ctl.handleSignal(c, data)
		}
	}
}

func (ctl *MailboxWSController) handleSignal(c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload"})
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(c)
	case "get":
		ctl.sendState(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "unknown_type"})
	}
}

func (ctl *MailboxWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON")
	}
}

func (ctl *MailboxWSController) pingPeriod() time.Duration {
	if ctl.PingPeriod <= 0 {
		return 54 * time.Second
	}
	return ctl.PingPeriod
}

// pongWait tolerates one missed pong.
func (ctl *MailboxWSController) pongWait() time.Duration {
	return 2 * ctl.pingPeriod()
}
