package chat

import (
	"chatd/pkg/types"
)

// maxStopSequences caps user supplied stop sequences.
const maxStopSequences = 4

// Validate checks a request before it is allowed to queue for the engine.
// maxTokensLimit bounds max_tokens when positive.
func Validate(req types.ChatCompletionRequest, maxTokensLimit int) error {
	if len(req.Messages) == 0 {
		return invalid("messages", "messages list cannot be empty")
	}
	for i, m := range req.Messages {
		switch m.Role {
		case types.RoleSystem, types.RoleUser, types.RoleAssistant:
		default:
			return invalid("messages", "messages[%d].role must be one of system, user, assistant (got %q)", i, m.Role)
		}
	}
	if req.Stream {
		return invalid("stream", "streaming is not supported")
	}
	if t := req.Temperature; t != nil && (*t < 0 || *t > 2) {
		return invalid("temperature", "must be between 0 and 2")
	}
	if n := req.MaxTokens; n != nil {
		if *n <= 0 {
			return invalid("max_tokens", "must be greater than 0")
		}
		if maxTokensLimit > 0 && *n > maxTokensLimit {
			return invalid("max_tokens", "must not exceed %d", maxTokensLimit)
		}
	}
	if p := req.TopP; p != nil && (*p <= 0 || *p > 1) {
		return invalid("top_p", "must be greater than 0 and at most 1")
	}
	if len(req.Stop) > maxStopSequences {
		return invalid("stop", "at most %d stop sequences are allowed", maxStopSequences)
	}
	for _, s := range req.Stop {
		if s == "" {
			return invalid("stop", "stop sequences must not be empty")
		}
	}
	return nil
}
