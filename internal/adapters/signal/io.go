package signal

import (
	"context"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.ConnID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			ctl.flush(c)
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				ctl.writeClose(c)
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := ctl.write(c, websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := ctl.write(c, websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) write(c *WsSignalConn, kind int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, data)
}

// flush writes whatever is already queued without waiting for more.
func (ctl *SignalWSController) flush(c *WsSignalConn) {
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				ctl.writeClose(c)
				return
			}
			if err := ctl.write(c, websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (ctl *SignalWSController) writeClose(c *WsSignalConn) {
	_ = ctl.write(c, websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(sid)
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait))
	})
	limiter := newInboundLimiter(ctl.limits)

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if limiter != nil && !limiter.Allow() {
			ctl.Orch.Metrics.EventRejected("rate_limited")
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("inbound event rate limited")
			continue
		}
		ctl.handleSignal(sid, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(sid core.ConnID, c *WsSignalConn, data []byte) {
	in, err := domain.DecodeInbound(data)
	if err != nil {
		ctl.Orch.Reject(sid, err)
		return
	}

	switch in.Kind {
	case domain.EventPing:
		ctl.handlePing(c)
	case domain.EventWhoAmI:
		ctl.handleWhoAmI(sid, c)
	default:
		if err := ctl.Orch.Dispatch(sid, in); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("event", string(in.Kind)).Msg("event dropped")
		}
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, kind domain.EventKind, v any) {
	b, err := domain.EncodeOutbound(kind, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
