// Package connectivity tracks whether the backend is reachable.
//
// Two flags are kept: network-down (the link layer reports no connectivity)
// and server-down (the link is up but the backend is failing). Network-down
// wins: while the link is down the backend is not probed.
package connectivity

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/adapters/observability"
)

const DefaultInterval = 5 * time.Second

type Status struct {
	NetworkDown bool `json:"networkDown"`
	ServerDown  bool `json:"serverDown"`
}

// Up reports whether neither flag is set.
func (s Status) Up() bool { return !s.NetworkDown && !s.ServerDown }

func (s Status) String() string {
	switch {
	case s.NetworkDown:
		return "network-down"
	case s.ServerDown:
		return "server-down"
	}
	return "up"
}

// Link is the platform's online/offline indicator.
type Link interface {
	Up() bool
}

// NetLink reports up when any non-loopback interface is up.
type NetLink struct{}

func (NetLink) Up() bool {
	ifs, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, i := range ifs {
		if i.Flags&net.FlagUp != 0 && i.Flags&net.FlagLoopback == 0 {
			return true
		}
	}
	return false
}

// StaticLink is a switchable Link.
type StaticLink struct{ up atomic.Bool }

func NewStaticLink(up bool) *StaticLink {
	l := &StaticLink{}
	l.up.Store(up)
	return l
}

func (l *StaticLink) Up() bool    { return l.up.Load() }
func (l *StaticLink) Set(up bool) { l.up.Store(up) }

// Prober performs one cheap read against the backend.
type Prober interface {
	Probe(ctx context.Context) error
}

// Monitor is the process-wide connectivity state. Subscribers are called on
// every change with the previous and current status; they run on the
// goroutine that caused the change and must not block.
type Monitor struct {
	link     Link
	prober   Prober
	interval time.Duration

	mu     sync.Mutex
	status Status
	subs   map[int]func(prev, cur Status)
	nextID int
}

func New(link Link, prober Prober, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{link: link, prober: prober, interval: interval, subs: map[int]func(prev, cur Status){}}
	m.status.NetworkDown = !link.Up()
	observability.SetConnectivity(m.status.NetworkDown, m.status.ServerDown)
	return m
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsOnline is the link-layer signal only.
func (m *Monitor) IsOnline() bool { return m.link.Up() }

func (m *Monitor) ReportNetworkDown() {
	m.update(func(s *Status) { s.NetworkDown = true })
}

func (m *Monitor) ReportServerDown(down bool) {
	m.update(func(s *Status) { s.ServerDown = down })
}

// Subscribe registers fn and returns a func that removes it.
func (m *Monitor) Subscribe(fn func(prev, cur Status)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *Monitor) update(change func(*Status)) {
	m.mu.Lock()
	prev := m.status
	change(&m.status)
	cur := m.status
	if prev == cur {
		m.mu.Unlock()
		return
	}
	subs := make([]func(prev, cur Status), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	observability.SetConnectivity(cur.NetworkDown, cur.ServerDown)
	log.Info().Str("from", prev.String()).Str("to", cur.String()).Msg("connectivity changed")
	for _, fn := range subs {
		fn(prev, cur)
	}
}

// Check runs one probe cycle: it refreshes network-down from the link and,
// when the link is up, probes the backend.
func (m *Monitor) Check(ctx context.Context) {
	if !m.link.Up() {
		m.ReportNetworkDown()
		return
	}
	m.update(func(s *Status) { s.NetworkDown = false })
	if m.prober == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	err := m.prober.Probe(pctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Debug().Err(err).Msg("backend probe failed")
	}
	m.ReportServerDown(err != nil)
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Check(ctx)
		}
	}
}
