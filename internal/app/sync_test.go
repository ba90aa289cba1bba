package app_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"hotel_bookings/internal/app"
	"hotel_bookings/internal/connectivity"
	"hotel_bookings/internal/offline"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.calls, ",")
}

// stepReplayer records its calls. When gate is set, the first call signals
// entered and blocks until gate is closed.
type stepReplayer struct {
	name    string
	log     *callLog
	n       atomic.Int32
	entered chan struct{}
	gate    chan struct{}
}

func (r *stepReplayer) Name() string { return r.name }

func (r *stepReplayer) Replay(ctx context.Context) offline.ReplayReport {
	r.log.add(r.name)
	if r.n.Add(1) == 1 && r.gate != nil {
		close(r.entered)
		<-r.gate
	}
	return offline.ReplayReport{Resource: r.name}
}

type fakeSource struct {
	mu  sync.Mutex
	fns map[int]func(prev, cur connectivity.Status)
	id  int
}

func (s *fakeSource) Subscribe(fn func(prev, cur connectivity.Status)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = map[int]func(prev, cur connectivity.Status){}
	}
	id := s.id
	s.id++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *fakeSource) subscribed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func (s *fakeSource) fire(prev, cur connectivity.Status) {
	s.mu.Lock()
	fns := make([]func(prev, cur connectivity.Status), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(prev, cur)
	}
}

var (
	down = connectivity.Status{NetworkDown: true}
	up   = connectivity.Status{}
)

func TestCoordinator_OrderAndSingleFollowUp(t *testing.T) {
	defer goleak.VerifyNone(t)

	log := &callLog{}
	first := &stepReplayer{name: "bookings", log: log, entered: make(chan struct{}), gate: make(chan struct{})}
	c := app.NewCoordinator(
		first,
		&stepReplayer{name: "hotels", log: log},
		&stepReplayer{name: "rooms", log: log},
	)
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		c.Run(ctx, src)
		close(runDone)
	}()
	waitFor(t, "subscription", func() bool { return src.subscribed() == 1 })

	src.fire(down, up)
	<-first.entered

	if got := c.Trigger("manual"); got != app.SyncQueued {
		t.Fatalf("second trigger = %v, want queued", got)
	}
	if got := c.Trigger("manual"); got != app.SyncAlreadyQueued {
		t.Fatalf("third trigger = %v, want already queued", got)
	}
	src.fire(down, up)
	if _, ok := c.Sync(context.Background()); ok {
		t.Fatalf("direct sync must not run while a pass is in flight")
	}
	if !c.Running() {
		t.Fatalf("coordinator should report running")
	}

	close(first.gate)
	waitFor(t, "passes to finish", func() bool { return !c.Running() })

	if got, want := log.String(), "bookings,hotels,rooms,bookings,hotels,rooms"; got != want {
		t.Fatalf("calls = %s, want %s", got, want)
	}
	last, ok := c.Last()
	if !ok || last.Trigger != "follow-up" || len(last.Resources) != 3 {
		t.Fatalf("last report %+v", last)
	}

	cancel()
	<-runDone
	if src.subscribed() != 0 {
		t.Fatalf("Run must unsubscribe on exit")
	}
}

func TestCoordinator_IgnoresNonRecoveryTransitions(t *testing.T) {
	defer goleak.VerifyNone(t)

	log := &callLog{}
	c := app.NewCoordinator(&stepReplayer{name: "bookings", log: log})
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		c.Run(ctx, src)
		close(runDone)
	}()
	waitFor(t, "subscription", func() bool { return src.subscribed() == 1 })

	src.fire(up, down)
	src.fire(down, connectivity.Status{ServerDown: true})
	src.fire(connectivity.Status{ServerDown: true}, connectivity.Status{NetworkDown: true, ServerDown: true})
	time.Sleep(20 * time.Millisecond)
	if log.String() != "" {
		t.Fatalf("no pass expected, got %s", log.String())
	}

	src.fire(connectivity.Status{ServerDown: true}, up)
	waitFor(t, "pass", func() bool { return log.String() == "bookings" && !c.Running() })

	cancel()
	<-runDone
}

func TestCoordinator_SyncRunsInline(t *testing.T) {
	log := &callLog{}
	c := app.NewCoordinator(&stepReplayer{name: "hotels", log: log}, &stepReplayer{name: "rooms", log: log})

	rep, ok := c.Sync(context.Background())
	if !ok || rep.Trigger != "manual" || len(rep.Resources) != 2 || rep.Remaining() != 0 {
		t.Fatalf("report %+v ok=%v", rep, ok)
	}
	if c.Running() {
		t.Fatalf("running flag not released")
	}
}
