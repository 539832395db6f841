package bulk

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostEntry is one host's limiter with a TTL.
type hostEntry struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

// HostPacer spaces out requests to the same host. Limiters idle longer than
// the TTL are dropped by a background loop.
type HostPacer struct {
	mu    sync.Mutex
	hosts map[string]*hostEntry
	rps   float64
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

// NewHostPacer allows rps requests per second to each host, with a burst
// of one. rps <= 0 disables pacing.
func NewHostPacer(rps float64, ttl time.Duration) *HostPacer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	p := &HostPacer{hosts: make(map[string]*hostEntry), rps: rps, ttl: ttl, done: make(chan struct{})}
	go p.cleanupLoop()
	return p
}

// Wait blocks until a request to host may start or ctx ends.
func (p *HostPacer) Wait(ctx context.Context, host string) error {
	if p == nil || p.rps <= 0 {
		return ctx.Err()
	}
	return p.limiter(strings.ToLower(host)).Wait(ctx)
}

func (p *HostPacer) limiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if e, ok := p.hosts[host]; ok && now.Before(e.expiresAt) {
		e.expiresAt = now.Add(p.ttl)
		return e.limiter
	}
	e := &hostEntry{limiter: rate.NewLimiter(rate.Limit(p.rps), 1), expiresAt: now.Add(p.ttl)}
	p.hosts[host] = e
	return e.limiter
}

// Stop terminates the background cleanup goroutine.
func (p *HostPacer) Stop() {
	p.once.Do(func() { close(p.done) })
}

func (p *HostPacer) cleanupLoop() {
	ticker := time.NewTicker(p.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.mu.Lock()
			now := time.Now()
			for host, e := range p.hosts {
				if now.After(e.expiresAt) {
					delete(p.hosts, host)
				}
			}
			p.mu.Unlock()
		}
	}
}

// Hosts returns the number of hosts with a live limiter.
func (p *HostPacer) Hosts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hosts)
}
