package collector

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Gate admits one scan at a time and blocks new scans for a cooldown after
// an upstream quota error.
type Gate struct {
	mu       sync.Mutex
	running  bool
	until    time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewGate creates a Gate. A zero cooldown defaults to 60 seconds.
func NewGate(cooldown time.Duration) *Gate {
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &Gate{cooldown: cooldown, now: time.Now}
}

// Acquire reserves the gate. It returns ErrBusy while another scan runs and
// an error wrapping ErrCoolingDown during the cooldown. On success the caller
// must call the returned release func with the scan's error.
func (g *Gate) Acquire() (release func(err error), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return nil, ErrBusy
	}
	if now := g.now(); now.Before(g.until) {
		return nil, fmt.Errorf("%w: retry in %s", ErrCoolingDown, g.until.Sub(now).Round(time.Second))
	}
	g.running = true

	var once sync.Once
	return func(err error) {
		once.Do(func() { g.release(err) })
	}, nil
}

func (g *Gate) release(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
	if errors.Is(err, ErrQuotaExceeded) {
		g.until = g.now().Add(g.cooldown)
		log.Warn().Dur("cooldown", g.cooldown).Msg("quota exceeded, scans paused")
	}
}

// Remaining returns how long the current cooldown still lasts.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d := g.until.Sub(g.now()); d > 0 {
		return d
	}
	return 0
}
