package engine

import (
	"sync"
	"sync/atomic"
)

// fakeRuntime is an in-memory Runtime that records calls.
type fakeRuntime struct {
	loadErr error
	genErr  error
	out     Output
	// release, when set, blocks Generate until it is closed.
	release chan struct{}
	started chan struct{}

	mu         sync.Mutex
	loadedPath string
	prompts    []string
	loads      atomic.Int32
	closes     atomic.Int32
}

func (f *fakeRuntime) Load(modelPath string, _ Options) error {
	f.loads.Add(1)
	f.mu.Lock()
	f.loadedPath = modelPath
	f.mu.Unlock()
	return f.loadErr
}

func (f *fakeRuntime) Generate(prompt string, _ Params) (Output, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.genErr != nil {
		return Output{}, f.genErr
	}
	return f.out, nil
}

func (f *fakeRuntime) Close() error {
	f.closes.Add(1)
	return nil
}
