package core

import (
	"github.com/dkeye/Relay/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo int
	// Dropped are members whose buffer stayed full after the overflow hook ran.
	Dropped []MemberSession
	// Closed counts members whose transport was already closed.
	Closed int
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID   ConnID        `json:"id"`
	User domain.UserID `json:"user"`
}

// OverflowFunc is consulted when a member's buffer is full.
// Returning true makes Broadcast retry the send once.
type OverflowFunc func(ms MemberSession) (retry bool)

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	Empty() bool
	Has(id ConnID) bool
	Members() []MemberSession
	MembersSnapshot() []MemberDTO

	// AddMember and RemoveMember report whether the set changed.
	AddMember(ms MemberSession) bool
	RemoveMember(id ConnID) bool
	// Broadcast delivers data to every member except `except` (empty means everyone).
	// Concurrent broadcasts on the same room are serialized.
	Broadcast(except ConnID, data Frame, onOverflow OverflowFunc) PublishResult
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"members"`
}
