package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/CamBridge/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is a raw text payload sent to the socket.
type Frame []byte

// MailboxWSController streams mailbox changes to websocket clients so a
// publisher can wait for an offer instead of polling.
type MailboxWSController struct {
	Mailbox    *app.Mailbox
	PingPeriod time.Duration

	// ctx outlives single requests; sockets are closed when it is done.
	ctx context.Context
}

func NewMailboxWSController(ctx context.Context, mailbox *app.Mailbox, pingPeriod time.Duration) *MailboxWSController {
	return &MailboxWSController{
		Mailbox:    mailbox,
		PingPeriod: pingPeriod,
		ctx:        ctx,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWatch upgrades GET /signaling/ws.
func (ctl *MailboxWSController) HandleWatch(c *gin.Context) {
	client := c.GetString("client_token")
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("client", client).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan Frame, 32),
	}

	base := ctl.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)

	// Watch before the snapshot so no change between the two is missed.
	events := ctl.Mailbox.Watch(ctx)
	ctl.sendState(conn)

	go ctl.writePump(ctx, conn)
	go ctl.eventPump(ctx, conn, events)
	go ctl.readPump(ctx, cancel, client, conn)
}
