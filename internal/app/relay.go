package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

const sampleEvery = time.Second

// Relay owns the running state of the event relay. Connections accepted while
// it runs derive their context from Context and are torn down by Stop.
type Relay struct {
	reg     *Registry
	metrics *metrics.Relay

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(reg *Registry, m *metrics.Relay) *Relay {
	return &Relay{reg: reg, metrics: m}
}

// EnsureRunning starts the relay if it is not running yet.
// It reports true only for the call that actually started it.
func (r *Relay) EnsureRunning(parent context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx != nil && r.ctx.Err() == nil {
		log.Debug().Str("module", "app.relay").Msg("relay already running")
		return false
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.ctx, r.cancel = context.WithCancel(parent)
	r.done = make(chan struct{})
	go r.sample(r.ctx, r.done)
	log.Info().Str("module", "app.relay").Msg("relay started")
	return true
}

func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx != nil && r.ctx.Err() == nil
}

// Context returns the root context for new connections, or false if the relay is stopped.
func (r *Relay) Context() (context.Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil || r.ctx.Err() != nil {
		return nil, false
	}
	return r.ctx, true
}

// Stop disconnects every connection with a shutdown notice and stops the relay.
// Stopping a stopped relay is a no-op.
func (r *Relay) Stop() {
	r.mu.Lock()
	if r.ctx == nil {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.ctx, r.cancel, r.done = nil, nil, nil
	r.mu.Unlock()

	frame, err := domain.EncodeOutbound(domain.EventDisconnect, domain.Disconnect{Reason: domain.ReasonShutdown})
	if err != nil {
		log.Error().Str("module", "app.relay").Err(err).Msg("encode shutdown notice")
	}
	sessions := r.reg.Sessions()
	for _, sess := range sessions {
		if frame != nil {
			NotifyAndClose(sess, frame)
		} else {
			sess.Signal().Close()
		}
		r.reg.Unregister(sess.ID())
	}
	cancel()
	<-done
	r.metrics.SetSizes(r.reg.Counts())
	log.Info().Str("module", "app.relay").Int("connections", len(sessions)).Msg("relay stopped")
}

// NotifyAndClose makes room for a final frame if needed, enqueues it and closes the transport.
func NotifyAndClose(sess core.MemberSession, frame core.Frame) {
	sig := sess.Signal()
	err := sig.TrySend(frame)
	if errors.Is(err, core.ErrBackpressure) && sig.ShedOldest() {
		err = sig.TrySend(frame)
	}
	if err != nil {
		log.Debug().Str("module", "app.relay").Str("sid", string(sess.ID())).Err(err).Msg("final frame not queued")
	}
	sig.Close()
}

func (r *Relay) sample(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(sampleEvery)
	defer t.Stop()
	for {
		r.metrics.SetSizes(r.reg.Counts())
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
