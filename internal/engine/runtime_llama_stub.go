//go:build !llama

package engine

// No-CGO stub compiled when the 'llama' build tag is not set, keeping default
// builds and CI CGO-free. The real runtime lives in runtime_llama.go.

var llamaBuilt = false

type llamaRuntime struct{}

// NewLlamaRuntime returns a runtime that refuses to load without llama support.
func NewLlamaRuntime() Runtime { return llamaRuntime{} }

func (llamaRuntime) Load(string, Options) error {
	return ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (llamaRuntime) Generate(string, Params) (Output, error) {
	return Output{}, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (llamaRuntime) Close() error { return nil }
