package app

import (
	"fmt"

	"github.com/dkeye/Relay/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	// DropOldest sheds the member's oldest queued frame and retries once.
	DropOldest
	// KickMember disconnects the member.
	KickMember
)

func (a BackpressureAction) String() string {
	switch a {
	case DropOldest:
		return "drop_oldest"
	case KickMember:
		return "kick"
	default:
		return "none"
	}
}

// Overflow modes accepted in configuration.
const (
	OverflowDropOldest = "drop_oldest"
	OverflowDisconnect = "disconnect"
)

type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy applies one action to every slow member.
type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return p.Action
}

// NewPolicy maps a configured overflow mode to a policy.
func NewPolicy(mode string) (Policy, error) {
	switch mode {
	case OverflowDropOldest, "":
		return SimplePolicy{Action: DropOldest}, nil
	case OverflowDisconnect:
		return SimplePolicy{Action: KickMember}, nil
	default:
		return nil, fmt.Errorf("unknown overflow mode %q", mode)
	}
}
