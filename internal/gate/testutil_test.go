package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"chatd/internal/engine"
)

// fakeEngine is an in-memory Executor that records calls and tracks how many
// run at once.
type fakeEngine struct {
	delay time.Duration
	// hold, when set, blocks each call until one value is received.
	hold chan struct{}
	// started, when set, receives each prompt as its call begins.
	started   chan string
	err       error
	panicWith any

	mu        sync.Mutex
	calls     []string
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeEngine) Execute(prompt string, _ engine.Params) (engine.Output, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- prompt
	}
	if f.hold != nil {
		<-f.hold
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return engine.Output{}, f.err
	}
	return engine.Output{Text: "echo:" + prompt}, nil
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newHeldEngine() *fakeEngine {
	return &fakeEngine{hold: make(chan struct{}), started: make(chan string, 64)}
}

type submission struct {
	prompt string
	out    engine.Output
	err    error
}

// submitAsync runs Submit on its own goroutine.
func submitAsync(ctx context.Context, g *Gate, prompt string, wait time.Duration) <-chan submission {
	ch := make(chan submission, 1)
	go func() {
		out, err := g.Submit(ctx, prompt, engine.Params{}, wait)
		ch <- submission{prompt: prompt, out: out, err: err}
	}()
	return ch
}
