package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(sessions []core.MemberSession) []core.ConnID {
	out := make([]core.ConnID, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID())
	}
	return out
}

func TestRegistry_RegisterTwice(t *testing.T) {
	reg := NewRegistry()
	a, _ := newSession("a", 1)
	assert.True(t, reg.Register(a, nil))
	assert.False(t, reg.Register(a, nil))

	conns, rooms := reg.Counts()
	assert.Equal(t, 1, conns)
	assert.Equal(t, 0, rooms)
}

func TestRegistry_JoinIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	a, _ := newSession("a", 1)
	reg.Register(a, nil)

	assert.True(t, reg.Join("a", "S"))
	assert.False(t, reg.Join("a", "S"))
	assert.Equal(t, []core.ConnID{"a"}, ids(reg.MembersOf("S")))
	assert.Equal(t, []domain.RoomName{"S"}, reg.RoomsOf("a"))
}

func TestRegistry_JoinUnknownConnection(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Join("ghost", "S"))
	_, ok := reg.Room("S")
	assert.False(t, ok)
}

func TestRegistry_LeavePrunesEmptyRoom(t *testing.T) {
	reg := NewRegistry()
	a, _ := newSession("a", 1)
	b, _ := newSession("b", 1)
	reg.Register(a, nil)
	reg.Register(b, nil)
	reg.Join("a", "S")
	reg.Join("b", "S")

	assert.True(t, reg.Leave("a", "S"))
	assert.False(t, reg.Leave("a", "S"))
	_, ok := reg.Room("S")
	assert.True(t, ok)

	assert.True(t, reg.Leave("b", "S"))
	_, ok = reg.Room("S")
	assert.False(t, ok)
	assert.Empty(t, reg.MembersOf("S"))
	assert.Empty(t, reg.List())
}

func TestRegistry_LeaveRoomNeverJoined(t *testing.T) {
	reg := NewRegistry()
	a, _ := newSession("a", 1)
	reg.Register(a, nil)
	assert.False(t, reg.Leave("a", "nowhere"))
	assert.False(t, reg.Leave("ghost", "nowhere"))
}

func TestRegistry_UnregisterLeavesEveryRoom(t *testing.T) {
	reg := NewRegistry()
	a, _ := newSession("a", 1)
	b, _ := newSession("b", 1)
	ctx, cancel := context.WithCancel(context.Background())
	reg.Register(a, cancel)
	reg.Register(b, nil)
	reg.Join("a", "S1")
	reg.Join("a", "S2")
	reg.Join("b", "S2")

	sess, left, ok := reg.Unregister("a")
	require.True(t, ok)
	assert.Equal(t, core.ConnID("a"), sess.ID())
	assert.Equal(t, []domain.RoomName{"S1", "S2"}, left)
	assert.Error(t, ctx.Err())

	_, ok = reg.Room("S1")
	assert.False(t, ok)
	assert.Equal(t, []core.ConnID{"b"}, ids(reg.MembersOf("S2")))
	assert.Nil(t, reg.RoomsOf("a"))

	_, _, ok = reg.Unregister("a")
	assert.False(t, ok)
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry()
	a, _ := newSession("a", 1)
	b, _ := newSession("b", 1)
	reg.Register(a, nil)
	reg.Register(b, nil)
	reg.Join("a", "zeta")
	reg.Join("a", "alpha")
	reg.Join("b", "alpha")

	assert.Equal(t, []core.RoomInfo{
		{Name: "alpha", MemberCount: 2},
		{Name: "zeta", MemberCount: 1},
	}, reg.List())
}

func TestRegistry_ConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry()
	const n = 50
	for i := 0; i < n; i++ {
		s, _ := newSession(fmt.Sprintf("c%02d", i), 1)
		reg.Register(s, nil)
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := core.ConnID(fmt.Sprintf("c%02d", i))
			for j := 0; j < 20; j++ {
				reg.Join(sid, "S")
				_ = reg.MembersOf("S")
				reg.Leave(sid, "S")
			}
			if i%2 == 0 {
				reg.Join(sid, "S")
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, reg.MembersOf("S"), n/2)
	for i := 0; i < n; i++ {
		sid := core.ConnID(fmt.Sprintf("c%02d", i))
		if i%2 == 0 {
			assert.Equal(t, []domain.RoomName{"S"}, reg.RoomsOf(sid))
		} else {
			assert.Empty(t, reg.RoomsOf(sid))
		}
	}
}
