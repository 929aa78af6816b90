package orch

import (
	"fmt"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Publish encodes one event and fans it out to the room's current members.
// An unknown or empty room is not an error: nobody receives it.
func (o *Orchestrator) Publish(name domain.RoomName, except core.ConnID, kind domain.EventKind, data any) (core.PublishResult, error) {
	frame, err := domain.EncodeOutbound(kind, data)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	room, ok := o.Registry.Room(name)
	if !ok {
		log.Debug().Str("module", "orch").Str("room", string(name)).Str("event", string(kind)).Msg("publish to empty room")
		return core.PublishResult{}, nil
	}

	res := room.Broadcast(except, frame, func(ms core.MemberSession) bool {
		return o.onOverflow(room, ms)
	})
	o.Metrics.Delivered(string(kind), res.SendTo)
	o.Metrics.DeliveryFailed("closed", res.Closed)
	o.Metrics.DeliveryFailed("backpressure", len(res.Dropped))

	for _, slow := range res.Dropped {
		if o.action(room, slow) == app.KickMember {
			o.KickBySID(slow.ID(), domain.ReasonBackpressure)
		}
	}
	return res, nil
}

func (o *Orchestrator) action(room core.RoomService, ms core.MemberSession) app.BackpressureAction {
	if o.Policy == nil {
		return app.NoAction
	}
	return o.Policy.OnBackPressure(room, ms)
}

// onOverflow runs inside the room's fan-out; true asks for one retry.
func (o *Orchestrator) onOverflow(room core.RoomService, ms core.MemberSession) bool {
	act := o.action(room, ms)
	if act != app.DropOldest {
		return false
	}
	shed := ms.Signal().ShedOldest()
	if shed {
		o.Metrics.DeliveryFailed("shed", 1)
		log.Debug().Str("module", "orch").Str("room", string(room.Name())).Str("sid", string(ms.ID())).Msg("shed oldest frame")
	}
	return shed
}

// Unicast sends one event to a single connection.
func (o *Orchestrator) Unicast(sess core.MemberSession, kind domain.EventKind, data any) error {
	frame, err := domain.EncodeOutbound(kind, data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		o.Metrics.DeliveryFailed("unicast", 1)
		return err
	}
	o.Metrics.Delivered(string(kind), 1)
	return nil
}
