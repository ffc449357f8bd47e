package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"chatd/internal/chat"
	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/gate"
	"chatd/internal/health"
	"chatd/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// heldRuntime blocks every Generate until the test releases it.
type heldRuntime struct {
	hold    chan struct{}
	started chan string
	loadErr error

	loads  atomic.Int32
	closes atomic.Int32
	active atomic.Int32
	peak   atomic.Int32
}

func newHeldRuntime() *heldRuntime {
	return &heldRuntime{hold: make(chan struct{}), started: make(chan string, 16)}
}

func (r *heldRuntime) Load(string, engine.Options) error {
	r.loads.Add(1)
	return r.loadErr
}

func (r *heldRuntime) Generate(prompt string, _ engine.Params) (engine.Output, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	if n > r.peak.Load() {
		r.peak.Store(n)
	}
	r.started <- prompt
	<-r.hold
	return engine.Output{Text: "reply", PromptTokens: 5, CompletionTokens: 1}, nil
}

func (r *heldRuntime) Close() error {
	r.closes.Add(1)
	return nil
}

func testConfig() config.Config {
	return config.Config{ModelPath: "/models/tiny.gguf", QueueTimeoutMS: 5000}.WithDefaults()
}

func newTestApp(t *testing.T, rt engine.Runtime, pub gate.EventPublisher) *App {
	t.Helper()
	a, err := New(Options{Config: testConfig(), Runtime: rt, Publisher: pub})
	require.NoError(t, err)
	return a
}

func userReq(content string) types.ChatCompletionRequest {
	return types.ChatCompletionRequest{Messages: []types.ChatMessage{{Role: types.RoleUser, Content: content}}}
}

type outcome struct {
	res chat.Result
	err error
}

func completeAsync(a *App, content string) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		res, err := a.Complete(context.Background(), userReq(content))
		ch <- outcome{res, err}
	}()
	return ch
}

func TestStart_LoadsAndReportsReady(t *testing.T) {
	rt := newHeldRuntime()
	a := newTestApp(t, rt, nil)

	assert.Equal(t, health.StatusLoading, a.Health().Status)
	assert.False(t, a.Ready())

	require.NoError(t, a.Start())
	assert.Equal(t, int32(1), rt.loads.Load())
	rep := a.Health()
	assert.Equal(t, health.StatusOK, rep.Status)
	assert.True(t, rep.ModelLoaded)
	assert.Equal(t, "tiny.gguf", rep.ModelName)
	assert.True(t, a.Ready())

	require.Error(t, a.Start(), "the engine loads once per process")
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestStart_FailureIsDegraded(t *testing.T) {
	rt := newHeldRuntime()
	rt.loadErr = errors.New("bad gguf")
	a := newTestApp(t, rt, nil)

	err := a.Start()
	require.Error(t, err)
	assert.True(t, engine.IsLoadError(err))
	assert.Equal(t, health.StatusDegraded, a.Health().Status)

	_, err = a.Complete(context.Background(), userReq("hi"))
	assert.ErrorIs(t, err, chat.ErrUnavailable)
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestStart_MissingModelFile(t *testing.T) {
	cfg := testConfig()
	cfg.ModelPath = t.TempDir() + "/nope.gguf"
	a, err := New(Options{Config: cfg})
	require.NoError(t, err)
	err = a.Start()
	require.Error(t, err)
	assert.True(t, engine.IsLoadError(err))
	assert.Equal(t, engine.StateFailed, a.Engine.State())
}

func TestNew_RejectsUnknownTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.PromptTemplate = "alpaca"
	_, err := New(Options{Config: cfg, Runtime: newHeldRuntime()})
	require.Error(t, err)
}

func TestNew_ServerBackend(t *testing.T) {
	cfg := config.Config{Backend: config.BackendServer, ModelPath: "served.gguf"}.WithDefaults()
	a, err := New(Options{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, engine.StateUnloaded, a.Engine.State())
}

func TestShutdown_DrainsQueueThenUnloadsOnce(t *testing.T) {
	rt := newHeldRuntime()
	pub := gate.NewMemoryPublisher()
	a := newTestApp(t, rt, pub)
	require.NoError(t, a.Start())

	first := completeAsync(a, "one")
	<-rt.started
	second := completeAsync(a, "two")
	require.Eventually(t, func() bool { return a.Gate.QueueDepth() == 1 }, time.Second, time.Millisecond)
	third := completeAsync(a, "three")
	require.Eventually(t, func() bool { return a.Gate.QueueDepth() == 2 }, time.Second, time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- a.Shutdown(context.Background()) }()

	for _, ch := range []<-chan outcome{second, third} {
		o := <-ch
		assert.ErrorIs(t, o.err, chat.ErrBusy)
		assert.ErrorIs(t, o.err, gate.ErrCancelled)
	}
	assert.Equal(t, health.StatusDegraded, a.Health().Status)

	select {
	case err := <-done:
		t.Fatalf("shutdown finished under a running generation: %v", err)
	case <-time.After(30 * time.Millisecond):
	}
	assert.Zero(t, rt.closes.Load(), "engine unloaded before the in-flight call returned")

	rt.hold <- struct{}{}
	o := <-first
	require.NoError(t, o.err)
	assert.Equal(t, "reply", o.res.Text)

	require.NoError(t, <-done)
	assert.Equal(t, int32(1), rt.closes.Load())
	assert.Equal(t, engine.StateUnloaded, a.Engine.State())
	assert.Len(t, pub.Named(gate.EventCancel), 2)

	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, int32(1), rt.closes.Load(), "unload happens exactly once")

	_, err := a.Complete(context.Background(), userReq("late"))
	assert.ErrorIs(t, err, chat.ErrBusy)
	assert.ErrorIs(t, err, gate.ErrClosed)
}

func TestShutdown_DeadlineLeavesEngineLoaded(t *testing.T) {
	rt := newHeldRuntime()
	a := newTestApp(t, rt, nil)
	require.NoError(t, a.Start())

	first := completeAsync(a, "one")
	<-rt.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := a.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, rt.closes.Load())
	assert.Equal(t, engine.StateServing, a.Engine.State())

	rt.hold <- struct{}{}
	require.NoError(t, (<-first).err)
	assert.Zero(t, rt.closes.Load())
}

func TestHandler_SerializesConcurrentRequests(t *testing.T) {
	rt := newHeldRuntime()
	a := newTestApp(t, rt, nil)
	require.NoError(t, a.Start())
	h := a.Handler()

	const n = 3
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		go func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
				bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}],"max_tokens":8}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	<-rt.started
	require.Eventually(t, func() bool { return a.Gate.QueueDepth() == n-1 }, time.Second, time.Millisecond)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	var body types.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, n-1, body.QueueDepth)
	assert.Equal(t, 1, body.Inflight)
	assert.Equal(t, "serving", body.EngineState)

	for i := 0; i < n; i++ {
		rt.hold <- struct{}{}
		assert.Equal(t, http.StatusOK, <-codes)
		if i < n-1 {
			<-rt.started
		}
	}
	assert.Equal(t, int32(1), rt.peak.Load())
	require.NoError(t, a.Shutdown(context.Background()))
}
