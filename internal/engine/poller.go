package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "reminderbot/pkg/logx"
)

// Poller drives one engine on a fixed interval: run a cycle, sleep, repeat.
// The trigger is a cron "@every" entry so interval and timezone handling
// match the rest of the fleet's schedulers.
type Poller struct {
	name         string
	engine       *Engine
	interval     time.Duration
	cycleTimeout time.Duration
	loc          *time.Location
	log          logx.Logger

	// onCycle runs after every completed cycle (watchdog ping).
	onCycle func(CycleStats)

	mu      sync.Mutex
	c       *cron.Cron
	running atomic.Bool // overlap guard: one cycle at a time
}

type PollerOptions struct {
	Interval     time.Duration // default 30s
	CycleTimeout time.Duration // default 2m
	Location     *time.Location
	OnCycle      func(CycleStats)
}

func NewPoller(name string, e *Engine, opt PollerOptions, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	interval := opt.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	cycleTimeout := opt.CycleTimeout
	if cycleTimeout <= 0 {
		cycleTimeout = 2 * time.Minute
	}
	loc := opt.Location
	if loc == nil {
		loc = time.Local
	}
	return &Poller{
		name:         name,
		engine:       e,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		loc:          loc,
		log:          log.With(logx.String("poller", name)),
		onCycle:      opt.OnCycle,
	}
}

// Start runs an immediate first cycle, then polls on the interval until Stop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(p.loc))
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := c.AddFunc(spec, func() { p.tick(ctx) }); err != nil {
		return fmt.Errorf("poller %s: %w", p.name, err)
	}
	p.c = c
	c.Start()
	p.log.Info("poller started", logx.Duration("interval", p.interval))

	// First cycle right away; misses nothing when the process (re)starts
	// close to an event.
	go p.tick(ctx)
	return nil
}

// Stop halts the trigger and waits for an in-flight cycle to finish, bounded
// by ctx. The current cycle is never cut short mid-dispatch: marking follows
// sending, so shutdown can't leave a sent-but-unrecorded key behind by
// cancellation alone.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.c
	p.c = nil
	p.mu.Unlock()
	if c == nil {
		return nil
	}

	stopped := c.Stop() // done when running jobs return
	select {
	case <-stopped.Done():
		p.log.Info("poller stopped")
		return nil
	case <-ctx.Done():
		p.log.Warn("poller stop timed out with cycle in flight")
		return ctx.Err()
	}
}

func (p *Poller) tick(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	if !p.running.CompareAndSwap(false, true) {
		p.log.Warn("previous cycle still running, skipping tick")
		return
	}
	defer p.running.Store(false)

	// The cycle gets its own deadline, detached from shutdown cancellation:
	// a cycle in progress is allowed to finish.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.cycleTimeout)
	defer cancel()

	start := time.Now()
	stats, err := p.engine.RunCycle(ctx)
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		p.log.Warn("cycle skipped", logx.Err(err))
	case err != nil:
		p.log.Error("cycle failed", logx.Err(err))
	default:
		lvl := p.log.Debug
		if stats.Dispatched > 0 || stats.Failures > 0 {
			lvl = p.log.Info
		}
		lvl("cycle complete",
			logx.Int("events", stats.Events),
			logx.Int("matched", stats.Matched),
			logx.Int("sent", stats.Dispatched),
			logx.Int("already_sent", stats.Duplicates),
			logx.Int("failed", stats.Failures),
			logx.Duration("took", time.Since(start)))
	}

	if p.onCycle != nil {
		p.onCycle(stats)
	}
}
