package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Backends.
const (
	BackendLlama  = "llama"
	BackendServer = "server"
)

// Config holds runtime parameters for the service.
// Zero values (and nil pointers) mean "unspecified" and are replaced by
// WithDefaults.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Model file, or a directory holding exactly one *.gguf.
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	// Backend selects the runtime: llama (in-process) or server (llama-server).
	Backend   string `json:"backend" yaml:"backend" toml:"backend"`
	ServerURL string `json:"server_url" yaml:"server_url" toml:"server_url"`
	// GPULayers is the number of layers to offload; -1 offloads all.
	GPULayers   *int `json:"n_gpu_layers" yaml:"n_gpu_layers" toml:"n_gpu_layers"`
	ContextSize int  `json:"n_ctx" yaml:"n_ctx" toml:"n_ctx"`
	Threads     int  `json:"n_threads" yaml:"n_threads" toml:"n_threads"`
	// ServerReadyTimeoutMS bounds how long startup waits for llama-server.
	ServerReadyTimeoutMS int `json:"server_ready_timeout_ms" yaml:"server_ready_timeout_ms" toml:"server_ready_timeout_ms"`

	// MaxQueueDepth bounds waiting requests; 0 means unbounded.
	MaxQueueDepth *int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	// QueueTimeoutMS bounds the time a request may wait for the engine.
	// 0 selects the default; NoQueueTimeout waits until admitted or the
	// request ends.
	QueueTimeoutMS int `json:"queue_timeout_ms" yaml:"queue_timeout_ms" toml:"queue_timeout_ms"`
	// RequestTimeoutMS bounds a whole completion request, queueing included.
	// 0 disables the overall deadline.
	RequestTimeoutMS int `json:"request_timeout_ms" yaml:"request_timeout_ms" toml:"request_timeout_ms"`
	// ShutdownTimeoutMS bounds the drain on shutdown.
	ShutdownTimeoutMS int `json:"shutdown_timeout_ms" yaml:"shutdown_timeout_ms" toml:"shutdown_timeout_ms"`

	PromptTemplate string `json:"prompt_template" yaml:"prompt_template" toml:"prompt_template"`
	// MaxTokensLimit caps max_tokens per request; 0 uses n_ctx.
	MaxTokensLimit int `json:"max_tokens_limit" yaml:"max_tokens_limit" toml:"max_tokens_limit"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

// Defaults returns a fully populated configuration.
func Defaults() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with every unspecified field filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.ModelPath == "" {
		c.ModelPath = "models/mistral-7b-instruct-v0.1.Q4_K_M.gguf"
	}
	if c.Backend == "" {
		c.Backend = BackendLlama
	}
	if c.Backend == BackendServer && c.ServerURL == "" {
		c.ServerURL = "http://127.0.0.1:8080"
	}
	if c.GPULayers == nil {
		c.GPULayers = intPtr(-1)
	}
	if c.ContextSize == 0 {
		c.ContextSize = 4096
	}
	if c.Threads == 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.ServerReadyTimeoutMS == 0 {
		c.ServerReadyTimeoutMS = 60_000
	}
	if c.MaxQueueDepth == nil {
		c.MaxQueueDepth = intPtr(64)
	}
	if c.QueueTimeoutMS == 0 {
		c.QueueTimeoutMS = 30_000
	}
	if c.ShutdownTimeoutMS == 0 {
		c.ShutdownTimeoutMS = 30_000
	}
	if c.PromptTemplate == "" {
		c.PromptTemplate = "chatml"
	}
	if c.MaxTokensLimit == 0 {
		c.MaxTokensLimit = c.ContextSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}
	return c
}

// Validate reports every invalid field of an already defaulted config.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendLlama:
	case BackendServer:
		if c.ServerURL == "" {
			errs = append(errs, errors.New("server_url is required for the server backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend must be %s or %s, got %q", BackendLlama, BackendServer, c.Backend))
	}
	if c.ModelPath == "" {
		errs = append(errs, errors.New("model_path is required"))
	}
	if c.GPULayers != nil && *c.GPULayers < -1 {
		errs = append(errs, errors.New("n_gpu_layers must be -1 or greater"))
	}
	if c.ContextSize < 0 {
		errs = append(errs, errors.New("n_ctx must not be negative"))
	}
	if c.Threads < 0 {
		errs = append(errs, errors.New("n_threads must not be negative"))
	}
	if c.MaxQueueDepth != nil && *c.MaxQueueDepth < 0 {
		errs = append(errs, errors.New("max_queue_depth must not be negative"))
	}
	if c.QueueTimeoutMS < NoQueueTimeout {
		errs = append(errs, fmt.Errorf("queue_timeout_ms must be %d or greater", NoQueueTimeout))
	}
	if c.RequestTimeoutMS < 0 || c.ShutdownTimeoutMS < 0 || c.ServerReadyTimeoutMS < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.MaxTokensLimit < 0 {
		errs = append(errs, errors.New("max_tokens_limit must not be negative"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug|info|warn|error, got %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json|console, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// NoQueueTimeout as queue_timeout_ms removes the bound on queue wait.
const NoQueueTimeout = -1

// QueueTimeout is QueueTimeoutMS as a Duration; zero means unbounded.
func (c Config) QueueTimeout() time.Duration {
	if c.QueueTimeoutMS == NoQueueTimeout {
		return 0
	}
	return ms(c.QueueTimeoutMS)
}

// RequestTimeout is RequestTimeoutMS as a Duration.
func (c Config) RequestTimeout() time.Duration { return ms(c.RequestTimeoutMS) }

// ShutdownTimeout is ShutdownTimeoutMS as a Duration.
func (c Config) ShutdownTimeout() time.Duration { return ms(c.ShutdownTimeoutMS) }

// ServerReadyTimeout is ServerReadyTimeoutMS as a Duration.
func (c Config) ServerReadyTimeout() time.Duration { return ms(c.ServerReadyTimeoutMS) }

// QueueBound returns the dereferenced MaxQueueDepth (0 when unset).
func (c Config) QueueBound() int {
	if c.MaxQueueDepth == nil {
		return 0
	}
	return *c.MaxQueueDepth
}

// GPULayerCount returns the dereferenced GPULayers (0 when unset).
func (c Config) GPULayerCount() int {
	if c.GPULayers == nil {
		return 0
	}
	return *c.GPULayers
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func intPtr(n int) *int { return &n }
