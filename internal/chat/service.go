// Package chat turns chat-completion requests into engine prompts, runs them
// through the admission gate and maps the outcome to a completion result.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/engine"
	"chatd/internal/gate"
	"chatd/pkg/types"
)

// Generation defaults applied when a request omits a field.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512
	DefaultTopP        = 1.0
)

// Submitter is the part of the admission gate the service depends on.
type Submitter interface {
	Submit(ctx context.Context, prompt string, params engine.Params, wait time.Duration) (engine.Output, error)
}

// Config configures a Service.
type Config struct {
	Gate Submitter
	// Template renders messages to a prompt; nil selects chatml.
	Template Template
	// QueueTimeout bounds the time a request may wait for the engine.
	// Zero defers to the gate's default.
	QueueTimeout time.Duration
	// MaxTokensLimit caps max_tokens when positive.
	MaxTokensLimit int
	Logger         *zerolog.Logger
}

// Result is the outcome of a successful completion.
type Result struct {
	Text             string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Service is the chat-completion use case. It is safe for concurrent use.
type Service struct {
	gate         Submitter
	tmpl         Template
	queueTimeout time.Duration
	maxTokens    int
	log          zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) *Service {
	s := &Service{
		gate:         cfg.Gate,
		tmpl:         cfg.Template,
		queueTimeout: cfg.QueueTimeout,
		maxTokens:    cfg.MaxTokensLimit,
		log:          zerolog.Nop(),
	}
	if s.tmpl == nil {
		s.tmpl = chatML{}
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "chat").Logger()
	}
	return s
}

// Validate checks req against the service limits.
func (s *Service) Validate(req types.ChatCompletionRequest) error {
	return Validate(req, s.maxTokens)
}

// BuildPrompt renders messages with the configured template.
func (s *Service) BuildPrompt(messages []types.ChatMessage) string {
	return s.tmpl.Render(messages)
}

// Complete validates req, waits for the engine and returns the generated
// assistant message.
func (s *Service) Complete(ctx context.Context, req types.ChatCompletionRequest) (Result, error) {
	if err := s.Validate(req); err != nil {
		return Result{}, err
	}
	params := s.params(req)
	prompt := s.BuildPrompt(req.Messages)
	s.log.Debug().Int("messages", len(req.Messages)).Int("prompt_chars", len(prompt)).
		Int("max_tokens", params.MaxTokens).Msg("submitting completion")

	out, err := s.gate.Submit(ctx, prompt, params, s.queueTimeout)
	if err != nil {
		return Result{}, s.mapError(err)
	}
	return Result{
		Text:             s.trim(out.Text),
		FinishReason:     finishReason(out, params.MaxTokens),
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
	}, nil
}

// params applies defaults and appends the template's stop markers.
func (s *Service) params(req types.ChatCompletionRequest) engine.Params {
	p := engine.Params{
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		MaxTokens:   DefaultMaxTokens,
	}
	if s.maxTokens > 0 && p.MaxTokens > s.maxTokens {
		p.MaxTokens = s.maxTokens
	}
	if req.Temperature != nil {
		p.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		p.TopP = float32(*req.TopP)
	}
	if req.MaxTokens != nil {
		p.MaxTokens = *req.MaxTokens
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	seen := map[string]bool{}
	for _, stop := range append(append([]string(nil), req.Stop...), s.tmpl.Stops()...) {
		if !seen[stop] {
			seen[stop] = true
			p.Stop = append(p.Stop, stop)
		}
	}
	return p
}

func (s *Service) mapError(err error) error {
	switch {
	case errors.Is(err, gate.ErrQueueFull):
		return fmt.Errorf("%w: %w: %w", ErrOverloaded, ErrBusy, err)
	case gate.IsTooBusy(err):
		return fmt.Errorf("%w: %w", ErrBusy, err)
	case errors.Is(err, engine.ErrNotReady):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		s.log.Error().Err(err).Msg("generation failed")
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
}

// trim removes template markers the runtime left at the end of the text.
func (s *Service) trim(text string) string {
	text = strings.TrimSpace(text)
	for trimmed := true; trimmed; {
		trimmed = false
		for _, stop := range s.tmpl.Stops() {
			marker := strings.TrimSpace(stop)
			if marker != "" && strings.HasSuffix(text, marker) {
				text = strings.TrimSpace(strings.TrimSuffix(text, marker))
				trimmed = true
			}
		}
	}
	return text
}

func finishReason(out engine.Output, maxTokens int) string {
	if maxTokens > 0 && out.CompletionTokens >= maxTokens {
		return "length"
	}
	if out.FinishReason != "" {
		return out.FinishReason
	}
	return "stop"
}
