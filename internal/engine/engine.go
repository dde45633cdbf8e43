package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reminderbot/internal/dedup"
	"reminderbot/internal/event"
	"reminderbot/internal/source"
	logx "reminderbot/pkg/logx"
)

// ErrSourceUnavailable wraps fetch failures that abort a whole cycle.
// The loop logs it and sleeps until the next tick; it never crashes.
var ErrSourceUnavailable = errors.New("event source unavailable")

// ErrStoreUnavailable wraps dedup store failures. These never abort a cycle;
// the affected decision is deferred and the rest of the cycle continues.
var ErrStoreUnavailable = errors.New("dedup store unavailable")

// Decision is one notification the engine has decided must fire now.
type Decision struct {
	Key       string
	Event     event.Event
	Window    Window
	Recipient Recipient
}

// Dispatcher renders and sends one decided notification. A nil error means
// "sent for dedup purposes" (a suppressed recipient also returns nil).
type Dispatcher interface {
	Dispatch(ctx context.Context, d Decision) error
}

// CycleStats summarizes one evaluation pass.
type CycleStats struct {
	Events     int // events fetched (after malformed rows were dropped)
	Matched    int // (event, window, recipient) combinations in an active window
	Dispatched int // sent and marked this cycle
	Duplicates int // skipped: key already in the store
	Failures   int // dispatch or store errors (retried next cycle)
}

// Engine runs the evaluation for one channel. Two engines (email, chat) can
// share one dedup store: their keys embed the destination, so the namespaces
// are disjoint, and the store itself is safe for concurrent use.
type Engine struct {
	channel    Channel
	src        source.Store
	store      dedup.Store
	resolver   Resolver
	dispatcher Dispatcher
	log        logx.Logger

	// now is swappable for tests.
	now func() time.Time

	mu                sync.Mutex
	classWindows      []Window
	assignmentWindows []Window
}

func New(channel Channel, src source.Store, store dedup.Store, resolver Resolver, dispatcher Dispatcher, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		channel:    channel,
		src:        src,
		store:      store,
		resolver:   resolver,
		dispatcher: dispatcher,
		log:        log.With(logx.String("channel", string(channel))),
		now:        time.Now,
	}
}

// SetWindows swaps the per-kind window tables (startup and config reload).
func (e *Engine) SetWindows(class, assignment []Window) {
	e.mu.Lock()
	e.classWindows = class
	e.assignmentWindows = assignment
	e.mu.Unlock()
}

func (e *Engine) windowsFor(kind event.Kind) []Window {
	e.mu.Lock()
	defer e.mu.Unlock()
	if kind == event.KindAssignment {
		return e.assignmentWindows
	}
	return e.classWindows
}

// RunCycle performs one fetch -> evaluate -> dispatch -> mark pass.
//
// Failure containment: a fetch failure aborts the cycle (ErrSourceUnavailable);
// everything below that is isolated per event and per recipient, so one bad
// row or one failed send never blocks the rest of the cycle.
func (e *Engine) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	classes, err := e.src.Classes(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: classes: %v", ErrSourceUnavailable, err)
	}
	assignments, err := e.src.Assignments(ctx)
	if err != nil {
		return stats, fmt.Errorf("%w: assignments: %v", ErrSourceUnavailable, err)
	}
	if err := e.resolver.Prepare(ctx); err != nil {
		return stats, fmt.Errorf("%w: roster: %v", ErrSourceUnavailable, err)
	}

	now := e.now()
	events := make([]event.Event, 0, len(classes)+len(assignments))
	events = append(events, classes...)
	events = append(events, assignments...)
	stats.Events = len(events)

	for _, ev := range events {
		e.evaluateEvent(ctx, now, ev, &stats)
	}
	return stats, nil
}

func (e *Engine) evaluateEvent(ctx context.Context, now time.Time, ev event.Event, stats *CycleStats) {
	active := ActiveWindows(now, ev.At, e.windowsFor(ev.Kind))
	if len(active) == 0 {
		return
	}

	for _, win := range active {
		recipients := e.resolver.Resolve(ev)
		for _, rec := range recipients {
			stats.Matched++
			e.dispatchOne(ctx, Decision{
				Key:       BuildKey(ev.Kind, ev.NaturalID(), win.Label, rec.Destination),
				Event:     ev,
				Window:    win,
				Recipient: rec,
			}, stats)
		}
	}
}

func (e *Engine) dispatchOne(ctx context.Context, d Decision, stats *CycleStats) {
	sent, err := e.store.Contains(ctx, d.Key)
	if err != nil {
		// Can't prove the key is new; dispatching now could duplicate, and
		// the window keeps the decision alive for the next cycle.
		stats.Failures++
		e.log.Warn("dedup lookup failed, deferring to next cycle",
			logx.String("key", d.Key),
			logx.Err(fmt.Errorf("%w: %v", ErrStoreUnavailable, err)))
		return
	}
	if sent {
		stats.Duplicates++
		return
	}

	if err := e.dispatcher.Dispatch(ctx, d); err != nil {
		// Not marked: the send retries naturally while the window is active.
		stats.Failures++
		e.log.Warn("dispatch failed",
			logx.String("key", d.Key),
			logx.String("event", d.Event.Title),
			logx.String("window", d.Window.Label),
			logx.Err(err))
		return
	}

	if err := e.store.MarkSent(ctx, d.Key); err != nil {
		// Dispatched but not recorded. The next cycle may send this once
		// more; bounded by the window width and accepted over two-phase
		// commit.
		stats.Failures++
		e.log.Error("sent but failed to persist reminder key; duplicate possible next cycle",
			logx.String("key", d.Key),
			logx.Err(fmt.Errorf("%w: %v", ErrStoreUnavailable, err)))
		return
	}

	stats.Dispatched++
	e.log.Info("reminder sent",
		logx.String("kind", string(d.Event.Kind)),
		logx.String("event", d.Event.Title),
		logx.String("window", d.Window.Label),
		logx.String("to", d.Recipient.Destination))
}
