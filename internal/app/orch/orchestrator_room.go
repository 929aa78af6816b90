package orch

import (
	"context"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type connectInfo struct {
	ID   core.ConnID   `json:"id"`
	User domain.UserID `json:"user"`
}

// Connect registers a fresh connection and greets it.
func (o *Orchestrator) Connect(sess core.MemberSession, cancel context.CancelFunc) bool {
	if !o.Registry.Register(sess, cancel) {
		return false
	}
	if err := o.Unicast(sess, domain.EventConnect, connectInfo{ID: sess.ID(), User: sess.Meta().User.ID}); err != nil {
		log.Warn().Str("module", "orch").Str("sid", string(sess.ID())).Err(err).Msg("connect notice not queued")
	}
	return true
}

func (o *Orchestrator) Join(sid core.ConnID, name domain.RoomName) {
	if o.Registry.Join(sid, name) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(name)).Msg("added to room")
	}
}

func (o *Orchestrator) Leave(sid core.ConnID, name domain.RoomName) {
	if o.Registry.Leave(sid, name) {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(name)).Msg("removed from room")
	}
}

// OnDisconnect is called by the transport once the connection is gone.
func (o *Orchestrator) OnDisconnect(sid core.ConnID) {
	sess, rooms, ok := o.Registry.Unregister(sid)
	if !ok {
		return
	}
	sess.Signal().Close()
	log.Info().Str("module", "orch").Str("sid", string(sid)).Int("rooms", len(rooms)).Msg("connection gone")
}

// KickBySID tells a connection why it is being dropped, closes it and removes
// it from every room.
func (o *Orchestrator) KickBySID(sid core.ConnID, reason string) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return
	}
	frame, err := domain.EncodeOutbound(domain.EventDisconnect, domain.Disconnect{Reason: reason})
	if err != nil {
		sess.Signal().Close()
	} else {
		app.NotifyAndClose(sess, frame)
	}
	_, rooms, ok := o.Registry.Unregister(sid)
	if !ok {
		return
	}
	if reason == domain.ReasonBackpressure {
		o.Metrics.Evicted()
	}
	log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("reason", reason).Int("rooms", len(rooms)).Msg("kicked connection")
}
