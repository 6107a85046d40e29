package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldowns limits each user to one use of a command per period.
type Cooldowns struct {
	per time.Duration
	now func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewCooldowns(per time.Duration) *Cooldowns {
	return &Cooldowns{
		per:      per,
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

func cooldownKey(command, userID string) string {
	return command + ":" + userID
}

// Allow consumes the user's slot for command. When the slot is taken it
// reports how long until it frees up.
func (c *Cooldowns) Allow(command, userID string) (time.Duration, bool) {
	if c.per <= 0 {
		return 0, true
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	key := cooldownKey(command, userID)
	lim, ok := c.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.per), 1)
		c.limiters[key] = lim
	}
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return c.per, false
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d, false
	}
	return 0, true
}

// Reset frees the user's slot, e.g. after a command was rejected.
func (c *Cooldowns) Reset(command, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.limiters, cooldownKey(command, userID))
}

// Sweep drops limiters that are full again and returns how many it removed.
func (c *Cooldowns) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, lim := range c.limiters {
		if lim.TokensAt(now) >= 1 {
			delete(c.limiters, key)
			n++
		}
	}
	return n
}

// Run sweeps expired cooldowns every minute until ctx is done.
func (c *Cooldowns) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				slog.Debug("cleared expired cooldowns", "count", n)
			}
		}
	}
}
