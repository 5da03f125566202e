package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/caremesh/medgate/pkg/chat"
)

// limit is a request cap over a sliding window.
type limit struct {
	max    int
	window time.Duration
}

var defaultLimits = map[chat.Kind]limit{
	chat.KindText:  {max: 30, window: 60 * time.Second},
	chat.KindImage: {max: 5, window: time.Hour},
}

type rateKey struct {
	identity string
	kind     chat.Kind
}

// RateLimiter performs per-(identity, kind) sliding-window admission
// control. The window state is in-memory and process-local; a restart
// resets all counters, which is a documented limitation of this design.
// Multi-instance deployments need a shared external counter instead.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[rateKey][]time.Time
	limits  map[chat.Kind]limit
	now     func() time.Time
}

// NewRateLimiter creates a RateLimiter with the default text and image
// limits (30/60s and 5/1h).
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		windows: make(map[rateKey][]time.Time),
		limits:  defaultLimits,
		now:     time.Now,
	}
}

// Check admits or rejects one request for the given identity and kind.
// On rejection the message reports how long until the oldest request in
// the window expires. An unknown kind degrades to the text limits; Check
// never fails.
func (r *RateLimiter) Check(identity string, kind chat.Kind) (bool, string) {
	lim, ok := r.limits[kind]
	if !ok {
		lim = r.limits[chat.KindText]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := rateKey{identity: identity, kind: kind}

	// Trim expired timestamps lazily on each check.
	window := r.windows[key][:0:len(r.windows[key])]
	for _, t := range r.windows[key] {
		if now.Sub(t) < lim.window {
			window = append(window, t)
		}
	}

	if len(window) >= lim.max {
		r.windows[key] = window
		wait := int(lim.window.Seconds() - now.Sub(window[0]).Seconds())
		return false, fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", wait)
	}

	r.windows[key] = append(window, now)
	return true, ""
}

// Sweep drops keys whose windows have fully expired. The windows map grows
// with distinct identities, so long-running deployments must call Sweep
// periodically.
func (r *RateLimiter) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, window := range r.windows {
		lim, ok := r.limits[key.kind]
		if !ok {
			lim = r.limits[chat.KindText]
		}
		live := false
		for _, t := range window {
			if now.Sub(t) < lim.window {
				live = true
				break
			}
		}
		if !live {
			delete(r.windows, key)
			removed++
		}
	}
	return removed
}
