// Package connectivity reports whether the device has a usable path to
// the internet. Reachability means a probe actually succeeds, not
// merely that a network interface is up.
package connectivity

import (
	"context"
	"net"
	"sync"
	"time"
)

// defaultProbeAddr is dialed when no probe address is configured.
const defaultProbeAddr = "1.1.1.1:443"

// defaultInterval is how often reachability is re-checked while at
// least one watcher is registered.
const defaultInterval = 15 * time.Second

// Prober answers a point-in-time reachability check.
type Prober interface {
	Probe(ctx context.Context) bool
}

// DialProber probes reachability by opening a TCP connection to a
// well-known address.
type DialProber struct {
	Addr    string
	Timeout time.Duration
}

// Probe dials the configured address and reports whether the
// connection was established.
func (p DialProber) Probe(ctx context.Context) bool {
	addr := p.Addr
	if addr == "" {
		addr = defaultProbeAddr
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Monitor produces a live reachability stream. The underlying poll
// loop runs only while someone is watching: the first watcher starts
// it and the last one leaving stops it, so an idle monitor holds no
// background resources.
type Monitor struct {
	prober   Prober
	interval time.Duration

	mu       sync.Mutex
	watchers map[int]chan bool
	nextID   int
	stopPoll chan struct{}
}

// NewMonitor creates a Monitor using the given prober and poll
// interval. A nil prober falls back to a DialProber against the
// default address; a non-positive interval falls back to 15s.
func NewMonitor(prober Prober, interval time.Duration) *Monitor {
	if prober == nil {
		prober = DialProber{}
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Monitor{
		prober:   prober,
		interval: interval,
		watchers: make(map[int]chan bool),
	}
}

// Online answers a point-in-time reachability check.
func (m *Monitor) Online(ctx context.Context) bool {
	return m.prober.Probe(ctx)
}

// Watch emits the current reachability immediately, then again each
// time it changes. Consecutive duplicate values are suppressed. The
// channel closes when ctx ends.
func (m *Monitor) Watch(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)
	id, raw := m.addWatcher()

	go func() {
		defer close(out)
		defer m.removeWatcher(id)

		// Initial value is computed now, not deferred until the next
		// underlying change.
		last := m.prober.Probe(ctx)
		select {
		case out <- last:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case online := <-raw:
				if online == last {
					continue
				}
				last = online
				select {
				case out <- online:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// addWatcher registers a raw-event channel, starting the poll loop if
// this is the first watcher.
func (m *Monitor) addWatcher() (int, chan bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	raw := make(chan bool, 16)
	m.watchers[id] = raw

	if len(m.watchers) == 1 {
		m.stopPoll = make(chan struct{})
		go m.poll(m.stopPoll)
	}

	return id, raw
}

// removeWatcher releases a watcher's registration, stopping the poll
// loop if this was the last one.
func (m *Monitor) removeWatcher(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.watchers, id)
	if len(m.watchers) == 0 && m.stopPoll != nil {
		close(m.stopPoll)
		m.stopPoll = nil
	}
}

// poll re-probes reachability at the configured interval and fans the
// raw result out to every watcher until stop closes.
func (m *Monitor) poll(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.interval)
			online := m.prober.Probe(ctx)
			cancel()
			m.broadcast(online)
		}
	}
}

// broadcast fans a raw reachability value out to all watchers without
// blocking; a slow watcher drops intermediate values, never the loop.
func (m *Monitor) broadcast(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, raw := range m.watchers {
		select {
		case raw <- online:
		default:
		}
	}
}
