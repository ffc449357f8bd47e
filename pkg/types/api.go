package types

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// Optional model identifier. Ignored: the server hosts a single model.
	// example: tinyllama-q4
	Model string `json:"model,omitempty" example:"tinyllama-q4"`
	// Conversation so far; must not be empty.
	Messages []ChatMessage `json:"messages"`
	// Sampling temperature in [0, 2]. Defaults to 0.7.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Maximum number of new tokens to generate. Defaults to 512.
	// example: 128
	MaxTokens *int `json:"max_tokens,omitempty" example:"128"`
	// Nucleus sampling probability in (0, 1]. Defaults to 1.0.
	// example: 0.9
	TopP *float64 `json:"top_p,omitempty" example:"0.9"`
	// Optional stop sequences, either a string or a list of strings.
	// example: ["\n\n","END"]
	Stop StopSequences `json:"stop,omitempty" swaggertype:"array,string" example:"\n\n,END"`
	// Random seed for reproducibility; omitted lets the engine choose.
	// example: 42
	Seed *int `json:"seed,omitempty" example:"42"`
	// Token streaming is not supported; true is rejected.
	Stream bool `json:"stream,omitempty"`
}

// ChatCompletionResponse is returned by POST /v1/chat/completions.
type ChatCompletionResponse struct {
	// example: chatcmpl-3b241101-e2bb-4255-8caf-4136c566a962
	ID string `json:"id" example:"chatcmpl-3b241101-e2bb-4255-8caf-4136c566a962"`
	// example: chat.completion
	Object string `json:"object" example:"chat.completion"`
	// Creation time in unix seconds.
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
	// Base name of the loaded model file.
	// example: tinyllama-1.1b-chat.Q4_K_M.gguf
	Model   string   `json:"model" example:"tinyllama-1.1b-chat.Q4_K_M.gguf"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is a single generated alternative. The server always returns one.
type Choice struct {
	// example: 0
	Index   int         `json:"index" example:"0"`
	Message ChatMessage `json:"message"`
	// One of stop, length.
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
}

// Usage reports token accounting when the runtime provides it.
type Usage struct {
	// example: 42
	PromptTokens int `json:"prompt_tokens" example:"42"`
	// example: 17
	CompletionTokens int `json:"completion_tokens" example:"17"`
	// example: 59
	TotalTokens int `json:"total_tokens" example:"59"`
}

// HealthResponse is returned by GET /v1/health.
type HealthResponse struct {
	// One of ok, loading, degraded.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Requests waiting for the engine.
	// example: 3
	QueueDepth int `json:"queue_depth" example:"3"`
	// Requests currently executing (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// example: tinyllama-1.1b-chat.Q4_K_M.gguf
	ModelName string `json:"model_name,omitempty" example:"tinyllama-1.1b-chat.Q4_K_M.gguf"`
	// Engine lifecycle state (unloaded, loading, ready, serving, unloading, failed).
	// example: ready
	EngineState string `json:"engine_state" example:"ready"`
}

// WelcomeResponse is returned by GET /.
type WelcomeResponse struct {
	Message string `json:"message" example:"chatd is running. POST /v1/chat/completions to chat."`
	// Docs is the Swagger UI path; empty unless built with -tags=swagger.
	Docs string `json:"docs,omitempty" example:"/swagger/index.html"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
