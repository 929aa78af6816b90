package app

import (
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
)

type fakeSignal struct {
	mu     sync.Mutex
	cap    int
	queue  []string
	closed bool
}

func (f *fakeSignal) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrConnClosed
	}
	if len(f.queue) >= f.cap {
		return core.ErrBackpressure
	}
	f.queue = append(f.queue, string(fr))
	return nil
}

func (f *fakeSignal) ShedOldest() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return false
	}
	f.queue = f.queue[1:]
	return true
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSignal) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSignal) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queue...)
}

func newSession(id string, capacity int) (core.MemberSession, *fakeSignal) {
	sig := &fakeSignal{cap: capacity}
	user := &domain.User{ID: domain.UserID("user-" + id)}
	return core.NewMemberSession(core.ConnID(id), domain.NewMember(user, time.Now()), sig), sig
}
