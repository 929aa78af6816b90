package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session core.MemberSession
	Rooms   map[domain.RoomName]struct{}
	Cancel  context.CancelFunc
}

// Registry is the single source of truth for who is connected and which rooms
// each connection sits in. The room table and the per-connection room sets are
// only changed under mu, so the two views always agree.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.ConnID]*sessionEntry
	rooms    *RoomManager
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.ConnID]*sessionEntry),
		rooms:    NewRoomManager(),
	}
}

// Register adds a live connection with no rooms. It reports false if the id is taken.
func (r *Registry) Register(sess core.MemberSession, cancel context.CancelFunc) bool {
	sid := sess.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; ok {
		log.Warn().Str("module", "app.registry").Str("sid", string(sid)).Msg("connection already registered")
		return false
	}
	r.sessions[sid] = &sessionEntry{
		Session: sess,
		Rooms:   make(map[domain.RoomName]struct{}),
		Cancel:  cancel,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(sess.Meta().User.ID)).Msg("registered connection")
	return true
}

// Join puts the connection into room, creating the room on first use.
// It reports false when the connection is unknown or already a member.
func (r *Registry) Join(sid core.ConnID, name domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	room := r.rooms.GetOrCreate(name)
	_, had := entry.Rooms[name]
	added := room.AddMember(entry.Session)
	entry.Rooms[name] = struct{}{}
	if had != !added {
		// both sides must have agreed before the call; one of them was stale
		log.Error().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(name)).
			Bool("entry_had_room", had).Bool("room_had_member", !added).Msg("membership out of sync, repaired")
	}
	if added {
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(name)).Msg("joined room")
	}
	return !had && added
}

// Leave takes the connection out of room and prunes the room if it became empty.
// It reports false when the connection was not a member.
func (r *Registry) Leave(sid core.ConnID, name domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(sid, name)
}

func (r *Registry) leaveLocked(sid core.ConnID, name domain.RoomName) bool {
	had := false
	if entry, ok := r.sessions[sid]; ok {
		_, had = entry.Rooms[name]
		delete(entry.Rooms, name)
	}
	removed := false
	if room, ok := r.rooms.Get(name); ok {
		removed = room.RemoveMember(sid)
		if r.rooms.PruneIfEmpty(name) {
			log.Info().Str("module", "app.registry").Str("room", string(name)).Msg("room pruned")
		}
	}
	if had != removed {
		log.Error().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(name)).
			Bool("entry_had_room", had).Bool("room_had_member", removed).Msg("membership out of sync, repaired")
	}
	if had || removed {
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(name)).Msg("left room")
	}
	return had || removed
}

// Unregister forgets the connection, removes it from every room it was in and
// cancels its context. It returns the session and the rooms it left.
func (r *Registry) Unregister(sid core.ConnID) (core.MemberSession, []domain.RoomName, bool) {
	r.mu.Lock()
	entry, ok := r.sessions[sid]
	if !ok {
		r.mu.Unlock()
		return nil, nil, false
	}
	left := sortedRooms(entry.Rooms)
	for _, name := range left {
		r.leaveLocked(sid, name)
	}
	delete(r.sessions, sid)
	r.mu.Unlock()

	if entry.Cancel != nil {
		entry.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", len(left)).Msg("unregistered connection")
	return entry.Session, left, true
}

// MembersOf returns a snapshot of the room's members; empty for unknown rooms.
func (r *Registry) MembersOf(name domain.RoomName) []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms.Get(name)
	if !ok {
		return nil
	}
	return room.Members()
}

// Room returns the live room, if any member is in it.
func (r *Registry) Room(name domain.RoomName) (core.RoomService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms.Get(name)
}

// RoomsOf returns the rooms the connection is in, sorted by name.
func (r *Registry) RoomsOf(sid core.ConnID) []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	return sortedRooms(entry.Rooms)
}

func (r *Registry) GetSession(sid core.ConnID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Sessions returns every live connection.
func (r *Registry) Sessions() []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSession, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.Session)
	}
	return out
}

func (r *Registry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms.List()
}

// Counts returns the number of live connections and rooms.
func (r *Registry) Counts() (conns, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), r.rooms.Len()
}

func sortedRooms(set map[domain.RoomName]struct{}) []domain.RoomName {
	out := make([]domain.RoomName, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
