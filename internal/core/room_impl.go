package core

import (
	"errors"
	"sort"
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	name  domain.RoomName
	mu    sync.RWMutex
	bySID map[ConnID]MemberSession

	// fanout keeps frames of one room in send order for every receiver.
	fanout sync.Mutex
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:  name,
		bySID: make(map[ConnID]MemberSession),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) Empty() bool { return r.MemberCount() == 0 }

func (r *roomImpl) Has(id ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySID[id]
	return ok
}

func (r *roomImpl) AddMember(ms MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[ms.ID()]; ok {
		return false
	}
	r.bySID[ms.ID()] = ms
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(ms.ID())).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(id ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[id]; !ok {
		return false
	}
	delete(r.bySID, id)
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(id)).Msg("member removed")
	return true
}

// Members returns a snapshot sorted by connection id.
func (r *roomImpl) Members() []MemberSession {
	r.mu.RLock()
	out := make([]MemberSession, 0, len(r.bySID))
	for _, ms := range r.bySID {
		out = append(out, ms)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *roomImpl) Broadcast(except ConnID, data Frame, onOverflow OverflowFunc) PublishResult {
	r.fanout.Lock()
	defer r.fanout.Unlock()

	res := PublishResult{}
	for _, m := range r.Members() {
		if except != "" && m.ID() == except {
			continue
		}
		err := m.Signal().TrySend(data)
		if errors.Is(err, ErrBackpressure) && onOverflow != nil && onOverflow(m) {
			err = m.Signal().TrySend(data)
		}
		switch {
		case err == nil:
			res.SendTo++
		case errors.Is(err, ErrConnClosed):
			res.Closed++
		default:
			res.Dropped = append(res.Dropped, m)
		}
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Int("closed", res.Closed).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	members := r.Members()
	out := make([]MemberDTO, 0, len(members))
	for _, ms := range members {
		out = append(out, MemberDTO{ID: ms.ID(), User: ms.Meta().User.ID})
	}
	return out
}
