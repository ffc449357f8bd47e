package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/chat"
	"chatd/internal/gate"
	"chatd/internal/health"
	"chatd/pkg/types"
)

//go:generate mockgen -destination=mocks/service.go -package=mocks chatd/internal/httpapi Service

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Complete(ctx context.Context, req types.ChatCompletionRequest) (chat.Result, error)
	Health() health.Report
	Ready() bool
}

const welcomeMessage = "chatd is running. POST /v1/chat/completions to chat."

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/", welcomeHandler)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat/completions", chatCompletionsHandler(svc))
		r.Get("/health", healthHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(svc.Health().Status))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// welcomeHandler godoc
// @Summary  Welcome message
// @Tags     meta
// @Produce  json
// @Success  200  {object}  types.WelcomeResponse
// @Router   / [get]
func welcomeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.WelcomeResponse{Message: welcomeMessage, Docs: swaggerUIPath})
}

// healthHandler godoc
// @Summary  Service health and queue depth
// @Tags     health
// @Produce  json
// @Success  200  {object}  types.HealthResponse
// @Router   /v1/health [get]
func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse(svc.Health()))
	}
}

// chatCompletionsHandler godoc
// @Summary      Create a chat completion
// @Description  Runs one non-streaming chat completion on the loaded model. Requests queue FIFO for the single engine slot.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatCompletionRequest  true  "Chat completion request"
// @Success      200      {object}  types.ChatCompletionResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Router       /v1/chat/completions [post]
func chatCompletionsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, len(req.Messages))

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if requestTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, requestTimeout)
			defer tcancel()
		}

		res, err := svc.Complete(ctx, req)
		if err != nil {
			// Client went away; nobody is left to read a response.
			if r.Context().Err() != nil {
				logEnd(r, lvl, 499, start, err)
				return
			}
			status := statusFor(err)
			if status == http.StatusTooManyRequests || (status == http.StatusServiceUnavailable && chat.IsBusy(err)) {
				w.Header().Set("Retry-After", retryAfter)
				countRejected(backpressureReason(err))
			}
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, status, start, err)
			return
		}

		countCompletion(res)
		writeJSON(w, http.StatusOK, completionResponse(res, svc.Health().ModelName))
		logEnd(r, lvl, http.StatusOK, start, nil)
		logCompletionText(r, lvl, res.Text)
	}
}

func completionResponse(res chat.Result, model string) types.ChatCompletionResponse {
	resp := types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []types.Choice{{
			Index:        0,
			Message:      types.ChatMessage{Role: types.RoleAssistant, Content: res.Text},
			FinishReason: res.FinishReason,
		}},
	}
	if res.PromptTokens > 0 || res.CompletionTokens > 0 {
		resp.Usage = &types.Usage{
			PromptTokens:     res.PromptTokens,
			CompletionTokens: res.CompletionTokens,
			TotalTokens:      res.PromptTokens + res.CompletionTokens,
		}
	}
	return resp
}

func healthResponse(rep health.Report) types.HealthResponse {
	return types.HealthResponse{
		Status:      rep.Status,
		QueueDepth:  rep.QueueDepth,
		Inflight:    rep.Inflight,
		ModelLoaded: rep.ModelLoaded,
		ModelName:   rep.ModelName,
		EngineState: rep.EngineState.String(),
	}
}

func backpressureReason(err error) string {
	switch {
	case errors.Is(err, chat.ErrOverloaded):
		return "queue_full"
	case errors.Is(err, gate.ErrTimeout):
		return "timeout"
	case errors.Is(err, gate.ErrClosed):
		return "shutdown"
	default:
		return "busy"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
