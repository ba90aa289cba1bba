package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/connectivity"
	"hotel_bookings/internal/offline"
)

// Replayer is one resource's queue as seen by the coordinator.
type Replayer interface {
	Name() string
	Replay(ctx context.Context) offline.ReplayReport
}

// StatusSource publishes connectivity transitions.
type StatusSource interface {
	Subscribe(fn func(prev, cur connectivity.Status)) (unsubscribe func())
}

type Report struct {
	Trigger   string                 `json:"trigger"`
	StartedAt time.Time              `json:"startedAt"`
	Duration  time.Duration          `json:"duration"`
	Resources []offline.ReplayReport `json:"resources"`
}

// Remaining is the number of ops still queued across resources.
func (r Report) Remaining() int {
	n := 0
	for _, rr := range r.Resources {
		n += rr.Remaining
	}
	return n
}

type TriggerResult int

const (
	SyncStarted TriggerResult = iota
	// SyncQueued: a pass is running; one follow-up pass will run after it.
	SyncQueued
	// SyncAlreadyQueued: a follow-up is already pending; the trigger was absorbed.
	SyncAlreadyQueued
)

// Coordinator replays the pending queues whenever connectivity comes back.
// At most one pass runs at a time; triggers arriving mid-pass collapse into
// a single follow-up pass.
type Coordinator struct {
	resources []Replayer

	running atomic.Bool
	again   atomic.Bool
	wg      sync.WaitGroup

	mu   sync.Mutex
	base context.Context
	last *Report
}

// NewCoordinator replays resources in the given order on every pass.
func NewCoordinator(resources ...Replayer) *Coordinator {
	return &Coordinator{resources: resources, base: context.Background()}
}

// Run subscribes to src and triggers a pass on every down-to-up transition.
// It blocks until ctx is done and then waits for the pass in flight.
func (c *Coordinator) Run(ctx context.Context, src StatusSource) {
	c.mu.Lock()
	c.base = ctx
	c.mu.Unlock()

	unsubscribe := src.Subscribe(func(prev, cur connectivity.Status) {
		if !prev.Up() && cur.Up() {
			c.Trigger("reconnect")
		}
	})
	<-ctx.Done()
	unsubscribe()
	c.wg.Wait()
}

// Trigger starts a background pass unless one is running.
func (c *Coordinator) Trigger(reason string) TriggerResult {
	if c.running.CompareAndSwap(false, true) {
		c.mu.Lock()
		ctx := c.base
		c.mu.Unlock()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.drain(ctx, reason)
		}()
		return SyncStarted
	}
	if c.again.CompareAndSwap(false, true) {
		return SyncQueued
	}
	return SyncAlreadyQueued
}

// Sync runs a pass on the calling goroutine. If a pass is already running it
// queues a follow-up and returns false.
func (c *Coordinator) Sync(ctx context.Context) (Report, bool) {
	if !c.running.CompareAndSwap(false, true) {
		c.again.Store(true)
		return Report{}, false
	}
	return c.drain(ctx, "manual"), true
}

func (c *Coordinator) Running() bool { return c.running.Load() }

// Last returns the most recent finished pass.
func (c *Coordinator) Last() (Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Report{}, false
	}
	return *c.last, true
}

// drain runs passes until no follow-up is pending. The caller owns running.
func (c *Coordinator) drain(ctx context.Context, trigger string) Report {
	for {
		rep := c.pass(ctx, trigger)
		trigger = "follow-up"
		if c.again.CompareAndSwap(true, false) {
			continue
		}
		c.running.Store(false)
		// a trigger may have landed between the check and the release
		if c.again.Load() && c.running.CompareAndSwap(false, true) {
			c.again.Store(false)
			continue
		}
		return rep
	}
}

func (c *Coordinator) pass(ctx context.Context, trigger string) Report {
	rep := Report{Trigger: trigger, StartedAt: time.Now()}
	observability.ObserveSync(trigger)
	for _, r := range c.resources {
		if ctx.Err() != nil {
			break
		}
		rep.Resources = append(rep.Resources, r.Replay(ctx))
	}
	rep.Duration = time.Since(rep.StartedAt)

	c.mu.Lock()
	c.last = &rep
	c.mu.Unlock()

	log.Info().
		Str("trigger", trigger).
		Int("remaining", rep.Remaining()).
		Dur("duration", rep.Duration).
		Msg("sync pass finished")
	return rep
}
