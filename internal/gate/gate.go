package gate

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/engine"
)

// Executor is the single-threaded capability the gate serializes access to.
// *engine.Handle satisfies it.
type Executor interface {
	Execute(prompt string, params engine.Params) (engine.Output, error)
}

// Config encapsulates all tunables for Gate construction.
type Config struct {
	Engine Executor
	// MaxQueueDepth bounds the number of queued (not admitted) waiters.
	// Zero means unbounded.
	MaxQueueDepth int
	// DefaultWait bounds time-to-admission when Submit is given no wait.
	// Zero means callers wait until admitted or their context ends.
	DefaultWait time.Duration
	Publisher   EventPublisher
	Logger      *zerolog.Logger
}

type waiterState int

const (
	stateQueued waiterState = iota
	stateAdmitted
	stateCompleted
	stateCancelled
	stateTimedOut
)

// waiter is the gate's record of one pending or executing request.
type waiter struct {
	id         uint64
	enqueuedAt time.Time
	state      waiterState
	elem       *list.Element
	// ready is closed when the waiter is admitted or resolved by Close;
	// err is written before the close.
	ready chan struct{}
	err   error
}

// Gate admits exactly one caller at a time to the engine, in FIFO order.
type Gate struct {
	eng         Executor
	maxQueue    int
	defaultWait time.Duration
	pub         EventPublisher
	log         zerolog.Logger

	mu     sync.Mutex
	queue  *list.List // of *waiter, head is next to admit
	busy   bool
	closed bool
	nextID uint64
	// idle is closed when a busy period ends (slot released, queue empty).
	idle chan struct{}

	depth    atomic.Int64
	inflight atomic.Int64
	shut     atomic.Bool
}

// New constructs a Gate from Config.
func New(cfg Config) *Gate {
	g := &Gate{
		eng:         cfg.Engine,
		maxQueue:    cfg.MaxQueueDepth,
		defaultWait: cfg.DefaultWait,
		pub:         cfg.Publisher,
		log:         zerolog.Nop(),
		queue:       list.New(),
	}
	if g.pub == nil {
		g.pub = noopPublisher{}
	}
	if g.maxQueue < 0 {
		g.maxQueue = 0
	}
	if cfg.Logger != nil {
		g.log = cfg.Logger.With().Str("component", "gate").Logger()
	}
	return g
}

// Submit waits for the engine slot, runs prompt through the engine and
// returns its output.
//
// wait bounds the time spent queued (zero selects the configured default).
// ctx carries caller cancellation and an optional overall deadline: if it
// ends while queued the waiter is removed without touching the engine; if
// it ends while executing, Submit returns at once but the engine call runs
// to completion and the slot is released only after it returns.
func (g *Gate) Submit(ctx context.Context, prompt string, params engine.Params, wait time.Duration) (engine.Output, error) {
	if err := ctx.Err(); err != nil {
		return engine.Output{}, contextError(err)
	}
	if wait <= 0 {
		wait = g.defaultWait
	}
	w, err := g.enqueue()
	if err != nil {
		return engine.Output{}, err
	}
	if err := g.awaitAdmission(ctx, w, wait); err != nil {
		return engine.Output{}, err
	}
	return g.run(ctx, w, prompt, params)
}

// QueueDepth returns the number of queued, not yet admitted, waiters.
func (g *Gate) QueueDepth() int { return int(g.depth.Load()) }

// Inflight returns 1 while a waiter holds the engine slot, else 0.
func (g *Gate) Inflight() int { return int(g.inflight.Load()) }

// Closed reports whether Close has been called.
func (g *Gate) Closed() bool { return g.shut.Load() }

// Close stops admission. New submissions fail with ErrClosed and every
// queued waiter is resolved to ErrCancelled. Close then waits for the
// in-flight call, if any, to return, or for ctx to end.
func (g *Gate) Close(ctx context.Context) error {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		g.shut.Store(true)
		n := g.queue.Len()
		for e := g.queue.Front(); e != nil; {
			next := e.Next()
			w := g.queue.Remove(e).(*waiter)
			g.depth.Add(-1)
			queueDepthGauge.Dec()
			w.elem = nil
			w.state = stateCancelled
			w.err = fmt.Errorf("%w: %w", ErrCancelled, ErrClosed)
			close(w.ready)
			outcomesTotal.WithLabelValues(outcomeShutdown).Inc()
			g.pub.Publish(Event{Name: EventCancel, WaiterID: w.id, Fields: map[string]any{"reason": "shutdown"}})
			e = next
		}
		g.pub.Publish(Event{Name: EventClose, Fields: map[string]any{"cancelled": n, "inflight": g.busy}})
		g.log.Info().Int("cancelled", n).Bool("inflight", g.busy).Msg("admission closed")
	}
	busy, idle := g.busy, g.idle
	g.mu.Unlock()

	if !busy {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue creates a waiter and either admits it at once (slot free) or
// appends it to the tail of the list.
func (g *Gate) enqueue() (*waiter, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		outcomesTotal.WithLabelValues(outcomeClosed).Inc()
		g.pub.Publish(Event{Name: EventReject, Fields: map[string]any{"reason": "closed"}})
		return nil, ErrClosed
	}
	// The slot is only ever free with an empty list, so the bound applies to
	// callers that would actually queue.
	if g.busy && g.maxQueue > 0 && g.queue.Len() >= g.maxQueue {
		outcomesTotal.WithLabelValues(outcomeQueueFull).Inc()
		g.pub.Publish(Event{Name: EventReject, Fields: map[string]any{"reason": "queue_full", "depth": g.queue.Len()}})
		return nil, ErrQueueFull
	}
	g.nextID++
	w := &waiter{id: g.nextID, enqueuedAt: time.Now(), state: stateQueued, ready: make(chan struct{})}
	g.pub.Publish(Event{Name: EventEnqueue, WaiterID: w.id})
	if !g.busy {
		g.idle = make(chan struct{})
		g.admitLocked(w)
		return w, nil
	}
	w.elem = g.queue.PushBack(w)
	g.depth.Add(1)
	queueDepthGauge.Inc()
	return w, nil
}

// admitLocked grants the slot to w. Caller holds g.mu and has ensured the
// slot is free.
func (g *Gate) admitLocked(w *waiter) {
	g.busy = true
	g.inflight.Store(1)
	inflightGauge.Set(1)
	w.state = stateAdmitted
	waitSeconds.Observe(time.Since(w.enqueuedAt).Seconds())
	g.pub.Publish(Event{Name: EventAdmit, WaiterID: w.id})
	close(w.ready)
}

// releaseLocked frees the slot and admits the head of the list, if any.
func (g *Gate) releaseLocked() {
	g.busy = false
	g.inflight.Store(0)
	inflightGauge.Set(0)
	if front := g.queue.Front(); front != nil {
		w := g.queue.Remove(front).(*waiter)
		g.depth.Add(-1)
		queueDepthGauge.Dec()
		w.elem = nil
		g.admitLocked(w)
		return
	}
	close(g.idle)
	g.idle = nil
}

// awaitAdmission blocks until w is admitted, its wait elapses, or ctx ends.
// A nil return means w holds the slot and its caller is still live.
func (g *Gate) awaitAdmission(ctx context.Context, w *waiter, wait time.Duration) error {
	select {
	case <-w.ready:
		return g.checkAdmitted(ctx, w, nil)
	default:
	}
	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-w.ready:
		return g.checkAdmitted(ctx, w, timeout)
	case <-ctx.Done():
		return g.abandon(w, contextError(ctx.Err()))
	case <-timeout:
		return g.abandon(w, ErrTimeout)
	}
}

// checkAdmitted re-checks a waiter whose ready channel fired. Admission can
// coincide with the caller's cancellation or wait expiry; such a waiter
// hands the slot on without reaching the engine.
func (g *Gate) checkAdmitted(ctx context.Context, w *waiter, timeout <-chan time.Time) error {
	if w.err != nil {
		return w.err
	}
	if err := ctx.Err(); err != nil {
		return g.abandon(w, contextError(err))
	}
	select {
	case <-timeout:
		return g.abandon(w, ErrTimeout)
	default:
		return nil
	}
}

// abandon resolves a waiter whose caller gave up before its call started.
func (g *Gate) abandon(w *waiter, reason error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, name, outcome := stateCancelled, EventCancel, outcomeCancelled
	if errors.Is(reason, ErrTimeout) {
		state, name, outcome = stateTimedOut, EventTimeout, outcomeTimeout
	}
	switch w.state {
	case stateQueued:
		g.queue.Remove(w.elem)
		g.depth.Add(-1)
		queueDepthGauge.Dec()
		w.elem = nil
	case stateAdmitted:
		// Admitted concurrently with the deadline: hand the slot on without
		// running the engine.
		g.releaseLocked()
	default:
		// Already resolved by Close.
		return w.err
	}
	w.state = state
	outcomesTotal.WithLabelValues(outcome).Inc()
	g.pub.Publish(Event{Name: name, WaiterID: w.id, Fields: map[string]any{"waited_ms": time.Since(w.enqueuedAt).Milliseconds()}})
	return reason
}

type result struct {
	out engine.Output
	err error
}

// run executes the admitted waiter's call. The engine call happens on its
// own goroutine so the caller can return on cancellation; the slot is
// released by that goroutine once the engine returns.
func (g *Gate) run(ctx context.Context, w *waiter, prompt string, params engine.Params) (engine.Output, error) {
	done := make(chan result, 1)
	go func() {
		start := time.Now()
		out, err := g.execute(prompt, params)
		executionSeconds.Observe(time.Since(start).Seconds())
		g.complete(w, err)
		done <- result{out: out, err: err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		g.mu.Lock()
		g.pub.Publish(Event{Name: EventAbandon, WaiterID: w.id})
		g.mu.Unlock()
		outcomesTotal.WithLabelValues(outcomeAbandoned).Inc()
		g.log.Debug().Uint64("waiter", w.id).Msg("caller left during generation; result will be discarded")
		return engine.Output{}, contextError(ctx.Err())
	}
}

// execute calls the engine, converting a panic into an engine error so the
// slot is always released.
func (g *Gate) execute(prompt string, params engine.Params) (out engine.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Msg("engine call panicked")
			err = &engine.InferenceError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return g.eng.Execute(prompt, params)
}

// complete marks w done and passes the slot to the next waiter.
func (g *Gate) complete(w *waiter, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	w.state = stateCompleted
	if err != nil {
		outcomesTotal.WithLabelValues(outcomeEngineError).Inc()
		g.pub.Publish(Event{Name: EventComplete, WaiterID: w.id, Fields: map[string]any{"error": err.Error()}})
	} else {
		outcomesTotal.WithLabelValues(outcomeCompleted).Inc()
		g.pub.Publish(Event{Name: EventComplete, WaiterID: w.id})
	}
	g.releaseLocked()
}
