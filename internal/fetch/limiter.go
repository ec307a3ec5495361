package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// defaultLimiterIdle is how long a host may go without requests before its
// limiter is dropped.
const defaultLimiterIdle = 10 * time.Minute

type hostEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// hostLimiter spaces out requests to the same host.
type hostLimiter struct {
	limit     rate.Limit
	maxIdle   time.Duration
	now       func() time.Time
	mu        sync.Mutex
	hosts     map[string]*hostEntry
	lastSweep time.Time
}

func newHostLimiter(requestsPerSecond float64) *hostLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &hostLimiter{
		limit:     limit,
		maxIdle:   defaultLimiterIdle,
		now:       time.Now,
		hosts:     make(map[string]*hostEntry),
		lastSweep: time.Now(),
	}
}

func (h *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	h.mu.Lock()
	now := h.now()
	if now.Sub(h.lastSweep) > h.maxIdle {
		h.cleanupLocked(now)
	}
	entry, exists := h.hosts[host]
	if !exists {
		entry = &hostEntry{limiter: rate.NewLimiter(h.limit, 1)}
		h.hosts[host] = entry
	}
	entry.lastUsed = now
	h.mu.Unlock()

	return entry.limiter.Wait(ctx)
}

// CleanupInactive removes host limiters that haven't been used recently
func (h *hostLimiter) CleanupInactive() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cleanupLocked(h.now())
}

func (h *hostLimiter) cleanupLocked(now time.Time) int {
	cleaned := 0
	for host, entry := range h.hosts {
		if now.Sub(entry.lastUsed) > h.maxIdle {
			delete(h.hosts, host)
			cleaned++
		}
	}
	h.lastSweep = now

	if cleaned > 0 {
		log.Debug().
			Int("cleaned_hosts", cleaned).
			Dur("max_idle_time", h.maxIdle).
			Msg("Cleaned up inactive host limiters")
	}
	return cleaned
}

func (h *hostLimiter) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hosts)
}
