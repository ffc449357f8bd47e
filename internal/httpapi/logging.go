package httpapi

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff
	case "error", "warn", "warning":
		// Request lines have no warn tier; warn keeps only failures.
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel applies to requests without an override.
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("CHATD_REQUEST_LOG_LEVEL"); v != "" {
		return parseLevel(v)
	}
	return LevelInfo
}()

// SetDefaultLogLevel sets the per-request log level used when a request
// carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

func logStart(r *http.Request, lvl LogLevel, messages int) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Int("messages", messages)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("completion start")
		return
	}
	log.Printf("completion start path=%s messages=%d", r.URL.Path, messages)
}

// logEnd records the outcome. Failures are logged from LevelError up,
// successes from LevelInfo up.
func logEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelError || (err == nil && lvl < LevelInfo) {
		return
	}
	if zlog != nil {
		z := zlog.Info()
		if status >= http.StatusInternalServerError {
			z = zlog.Error()
		}
		z = z.Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("completion end")
		return
	}
	if err != nil {
		log.Printf("completion end status=%d dur=%s err=%v", status, time.Since(start), err)
		return
	}
	log.Printf("completion end status=%d dur=%s", status, time.Since(start))
}

// logCompletionText logs the generated text when the request asked for debug.
func logCompletionText(r *http.Request, lvl LogLevel, text string) {
	if lvl < LevelDebug {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("text", text)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("completion text")
		return
	}
	log.Printf("completion> %s", text)
}
