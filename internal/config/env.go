package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables understood by ApplyEnv.
const (
	EnvAddr           = "CHATD_ADDR"
	EnvModelPath      = "MODEL_PATH"
	EnvGPULayers      = "N_GPU_LAYERS"
	EnvContextSize    = "N_CTX"
	EnvThreads        = "N_THREADS"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "CHATD_LOG_FORMAT"
	EnvBackend        = "CHATD_BACKEND"
	EnvServerURL      = "CHATD_SERVER_URL"
	EnvMaxQueueDepth  = "CHATD_MAX_QUEUE_DEPTH"
	EnvQueueTimeoutMS = "CHATD_QUEUE_TIMEOUT_MS"
	EnvPromptTemplate = "CHATD_PROMPT_TEMPLATE"
	EnvCORSOrigins    = "CHATD_CORS_ORIGINS"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg. Malformed numeric values
// are reported rather than silently ignored.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, set func(int)) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
			return
		}
		set(n)
	}

	str(EnvAddr, &cfg.Addr)
	str(EnvModelPath, &cfg.ModelPath)
	str(EnvLogLevel, &cfg.LogLevel)
	str(EnvLogFormat, &cfg.LogFormat)
	str(EnvBackend, &cfg.Backend)
	str(EnvServerURL, &cfg.ServerURL)
	str(EnvPromptTemplate, &cfg.PromptTemplate)
	num(EnvGPULayers, func(n int) { cfg.GPULayers = intPtr(n) })
	num(EnvContextSize, func(n int) { cfg.ContextSize = n })
	num(EnvThreads, func(n int) { cfg.Threads = n })
	num(EnvMaxQueueDepth, func(n int) { cfg.MaxQueueDepth = intPtr(n) })
	num(EnvQueueTimeoutMS, func(n int) { cfg.QueueTimeoutMS = n })
	if v, ok := lookup(EnvCORSOrigins); ok && strings.TrimSpace(v) != "" {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = SplitCSV(v)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return errors.Join(errs...)
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping
// empty entries.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
