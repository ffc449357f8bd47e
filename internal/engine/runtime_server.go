package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ServerConfig configures the llama-server runtime.
type ServerConfig struct {
	// BaseURL of a running llama.cpp server, e.g. http://127.0.0.1:8081.
	BaseURL string
	// ReadyTimeout bounds how long Load waits for the server to become healthy.
	ReadyTimeout time.Duration
	// RequestTimeout bounds one generation; zero disables it.
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// serverRuntime drives an external llama-server through its
// OpenAI-compatible completions endpoint. The server hosts the model, so the
// model path passed to Load is informational only.
type serverRuntime struct {
	baseURL        string
	readyTimeout   time.Duration
	requestTimeout time.Duration
	pollInterval   time.Duration
	httpClient     *http.Client
}

// NewServerRuntime constructs a runtime backed by llama-server.
func NewServerRuntime(cfg ServerConfig) Runtime {
	cli := cfg.HTTPClient
	if cli == nil {
		// Timeout=0: every call carries its own context deadline.
		cli = &http.Client{Timeout: 0}
	}
	rt := cfg.ReadyTimeout
	if rt <= 0 {
		rt = 30 * time.Second
	}
	return &serverRuntime{
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		readyTimeout:   rt,
		requestTimeout: cfg.RequestTimeout,
		pollInterval:   100 * time.Millisecond,
		httpClient:     cli,
	}
}

type completionRequest struct {
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   float32  `json:"temperature"`
	TopP          float32  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Seed          int      `json:"seed,omitempty"`
	RepeatPenalty float32  `json:"repeat_penalty,omitempty"`
	Stream        bool     `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (r *serverRuntime) Load(_ string, _ Options) error {
	if r.baseURL == "" {
		return errors.New("llama-server url is empty")
	}
	deadline := time.Now().Add(r.readyTimeout)
	for {
		if r.isHealthy(time.Second) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("llama-server not ready in time: %s", r.baseURL)
		}
		time.Sleep(r.pollInterval)
	}
}

// isHealthy checks that the server answers /v1/models with 2xx.
func (r *serverRuntime) isHealthy(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (r *serverRuntime) Generate(prompt string, params Params) (Output, error) {
	payload := completionRequest{
		Prompt:        prompt,
		MaxTokens:     params.MaxTokens,
		Temperature:   params.Temperature,
		TopP:          params.TopP,
		TopK:          params.TopK,
		Stop:          params.Stop,
		Seed:          params.Seed,
		RepeatPenalty: params.RepeatPenalty,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Output{}, err
	}
	ctx := context.Background()
	if r.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.requestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return Output{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Output{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Output{}, fmt.Errorf("llama server http error: %s: %s", resp.Status, string(b))
	}
	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Output{}, fmt.Errorf("decode llama server response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return Output{}, errors.New("llama server returned no choices")
	}
	return Output{
		Text:             cr.Choices[0].Text,
		FinishReason:     cr.Choices[0].FinishReason,
		PromptTokens:     cr.Usage.PromptTokens,
		CompletionTokens: cr.Usage.CompletionTokens,
	}, nil
}

func (r *serverRuntime) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}
