package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatd/internal/app"
	"chatd/internal/config"
	"chatd/pkg/types"
)

// fakeLlamaServer mimics the llama-server endpoints the server backend uses.
// Completions block while hold is non-nil and open.
type fakeLlamaServer struct {
	srv *httptest.Server

	mu      sync.Mutex
	hold    chan struct{}
	prompts []string

	started   chan struct{}
	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeLlamaServer(t *testing.T) *fakeLlamaServer {
	t.Helper()
	f := &fakeLlamaServer{started: make(chan struct{}, 64)}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"tiny"}]}`)
	})
	mux.HandleFunc("/v1/completions", f.complete)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// holdCompletions makes every completion block until the returned func runs.
func (f *fakeLlamaServer) holdCompletions() func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeLlamaServer) complete(w http.ResponseWriter, r *http.Request) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	var req struct {
		Prompt    string `json:"prompt"`
		MaxTokens int    `json:"max_tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	hold := f.hold
	f.mu.Unlock()
	f.started <- struct{}{}
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"text": " Hello there!", "finish_reason": "stop"}},
		"usage":   map[string]int{"prompt_tokens": 12, "completion_tokens": 3},
	})
}

func (f *fakeLlamaServer) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// newServer starts a chatd instance backed by f and returns its test server.
func newServer(t *testing.T, f *fakeLlamaServer, tweak func(*config.Config)) (*httptest.Server, *app.App) {
	t.Helper()
	cfg := config.Config{
		ModelPath:            "/models/tiny-chat.Q4_K_M.gguf",
		Backend:              config.BackendServer,
		ServerURL:            f.srv.URL,
		ServerReadyTimeoutMS: 2000,
		QueueTimeoutMS:       5000,
	}
	if tweak != nil {
		tweak(&cfg)
	}
	cfg = cfg.WithDefaults()
	a, err := app.New(app.Options{Config: cfg})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("start app: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return srv, a
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// postJSON is safe to call from helper goroutines: it reports failures
// through the returned error rather than t.Fatalf.
func postJSON(url string, payload []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body, nil
}

func chatPayload(t *testing.T, content string) []byte {
	t.Helper()
	b, err := json.Marshal(types.ChatCompletionRequest{
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: content}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

type postResult struct {
	status int
	body   []byte
	err    error
}

func postAsync(url string, payload []byte) <-chan postResult {
	ch := make(chan postResult, 1)
	go func() {
		resp, body, err := postJSON(url, payload)
		if err != nil {
			ch <- postResult{err: err}
			return
		}
		ch <- postResult{status: resp.StatusCode, body: body}
	}()
	return ch
}

func waitStarted(t *testing.T, f *fakeLlamaServer) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(3 * time.Second):
		t.Fatal("backend never received the completion")
	}
}

func waitQueueDepth(t *testing.T, srv *httptest.Server, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_, body := httpGet(t, srv.URL+"/v1/health")
		var h types.HealthResponse
		if err := json.Unmarshal(body, &h); err == nil && h.QueueDepth == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("queue depth never reached %d", want)
}
