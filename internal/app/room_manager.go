package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

// RoomManager owns the room table. Rooms exist only while they have members;
// callers that change membership must hold the registry lock.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomName]core.RoomService)}
}

func (f *RoomManager) GetOrCreate(name domain.RoomName) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[name]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[name]; ok {
		return room
	}
	room = core.NewRoomService(name)
	f.rooms[name] = room
	return room
}

func (f *RoomManager) Get(name domain.RoomName) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	return room, ok
}

// List returns the live rooms sorted by name.
func (f *RoomManager) List() []core.RoomInfo {
	f.mu.RLock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	f.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *RoomManager) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}

// PruneIfEmpty drops the room when nobody is left in it.
func (f *RoomManager) PruneIfEmpty(name domain.RoomName) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[name]
	if !ok || !room.Empty() {
		return false
	}
	delete(f.rooms, name)
	return true
}
