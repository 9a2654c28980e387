// Package governor paces outbound calls to the generation service.
package governor

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/honeypot/internal/logging"
)

// DefaultWindow is the quota window of the upstream service.
const DefaultWindow = 60 * time.Second

// Config holds pacing limits.
type Config struct {
	// RequestsPerMinute is the quota within Window. Zero disables the quota
	// check; the minimum interval still applies.
	RequestsPerMinute int
	MinInterval       time.Duration
	SafetyMargin      time.Duration
	Window            time.Duration
}

// Governor enforces a sliding-window quota plus a minimum spacing between
// calls. The lock is held only while a caller reserves its slot; the wait
// for that slot happens outside the lock, so concurrent callers queue in
// reservation order without blocking each other's bookkeeping.
type Governor struct {
	cfg Config

	mu     sync.Mutex
	window []time.Time // reserved slots, ascending
	last   time.Time

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	onWait func(time.Duration)
	log    *logging.Logger
}

// Option configures a Governor.
type Option func(*Governor)

// WithClock overrides the time source and the sleep function.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(g *Governor) {
		g.now = now
		g.sleep = sleep
	}
}

// WithWaitHook registers fn to be called whenever a caller has to wait.
func WithWaitHook(fn func(time.Duration)) Option {
	return func(g *Governor) { g.onWait = fn }
}

// New creates a governor.
func New(cfg Config, log *logging.Logger, opts ...Option) *Governor {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	g := &Governor{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
		log:   log.Sub("governor"),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Wait blocks until the caller may issue one request and returns how long
// it waited. A cancelled context aborts the wait but the reserved slot is
// kept, so the quota is never exceeded by abandoned callers.
func (g *Governor) Wait(ctx context.Context) (time.Duration, error) {
	g.mu.Lock()
	now := g.now()
	slot := now

	if !g.last.IsZero() {
		if next := g.last.Add(g.cfg.MinInterval); next.After(slot) {
			slot = next
		}
	}

	g.prune(slot)
	if limit := g.cfg.RequestsPerMinute; limit > 0 && len(g.window) >= limit {
		oldest := g.window[len(g.window)-limit]
		if free := oldest.Add(g.cfg.Window + g.cfg.SafetyMargin); free.After(slot) {
			slot = free
		}
		g.prune(slot)
	}

	g.window = append(g.window, slot)
	g.last = slot
	inWindow := len(g.window)
	g.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return 0, nil
	}

	g.log.Info().
		Dur("wait", wait).
		Int("inWindow", inWindow).
		Int("limit", g.cfg.RequestsPerMinute).
		Msg("rate limit wait")
	if g.onWait != nil {
		g.onWait(wait)
	}
	if err := g.sleep(ctx, wait); err != nil {
		return wait, err
	}
	return wait, nil
}

// prune drops slots that have left the window as seen from t.
func (g *Governor) prune(t time.Time) {
	cutoff := t.Add(-g.cfg.Window)
	i := 0
	for i < len(g.window) && !g.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.window = append(g.window[:0], g.window[i:]...)
	}
}

// Stats reports the current window usage.
type Stats struct {
	InWindow int `json:"inWindow"`
	Limit    int `json:"limit"`
}

// Stats returns window usage as of now.
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	return Stats{InWindow: len(g.window), Limit: g.cfg.RequestsPerMinute}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
