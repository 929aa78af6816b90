package signal

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, domain.EventPong, nil)
}

func (ctl *SignalWSController) handleWhoAmI(sid core.ConnID, conn *WsSignalConn) {
	resp := struct {
		ID    core.ConnID       `json:"id"`
		User  domain.UserID     `json:"user"`
		Rooms []domain.RoomName `json:"rooms"`
	}{
		ID:    sid,
		Rooms: ctl.Orch.Registry.RoomsOf(sid),
	}
	if sess, ok := ctl.Orch.Registry.GetSession(sid); ok {
		resp.User = sess.Meta().User.ID
	}
	if resp.Rooms == nil {
		resp.Rooms = []domain.RoomName{}
	}
	ctl.sendJSON(conn, domain.EventWhoAmI, resp)
}
