package engine

// State represents the lifecycle state of the engine handle.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateServing
	StateUnloading
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateServing:
		return "serving"
	case StateUnloading:
		return "unloading"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options are applied once when the model is loaded.
type Options struct {
	ContextSize int
	GPULayers   int
	Threads     int
}

// Params captures generation parameters for one Execute call.
type Params struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// Output is the result of a single generation.
type Output struct {
	Text string
	// FinishReason as reported by the runtime; empty when unknown.
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}
