package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ClientTokenKey is the gin context key holding the caller's cookie token.
const ClientTokenKey = "client_token"

type SignalWSController struct {
	Orch  *orch.Orchestrator
	Relay *app.Relay

	readLimit  int64
	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration
	sendBuffer int
	limits     limiterConfig
}

func NewSignalWSController(cfg *config.Config, relay *app.Relay, o *orch.Orchestrator) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		Relay:      relay,
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait,
		writeWait:  cfg.WriteWait,
		sendBuffer: cfg.Relay.SendBuffer,
		limits:     limiterConfig{perSecond: cfg.Relay.EventsPerSecond, burst: cfg.Relay.Burst},
	}
}

// WsSignalConn is the outbound side of one websocket. Frames are queued on a
// bounded channel and written by writePump, which owns the socket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) ShedOldest() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case <-c.send:
		return true
	default:
		return false
	}
}

// Close stops accepting frames. writePump flushes what is queued and then closes the socket.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(c *gin.Context) {
	root, ok := ctl.Relay.Context()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "relay not running"})
		return
	}

	userID := c.Query("user")
	if userID == "" {
		userID = c.GetString(ClientTokenKey)
	}
	user, err := domain.NewUser(userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := core.ConnID(uuid.NewString())
	conn := newWsSignalConn(ws, ctl.sendBuffer)
	sess := core.NewMemberSession(sid, domain.NewMember(user, time.Now()), conn)

	ctx, cancel := context.WithCancel(root)
	if !ctl.Orch.Connect(sess, cancel) {
		cancel()
		_ = ws.Close()
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("new WS connection")

	go ctl.writePump(ctx, sid, conn)
	go ctl.readPump(ctx, sid, conn)
}
