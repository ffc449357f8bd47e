package engine

// Runtime abstracts the native model runtime. Implementations are
// synchronous and non-reentrant: Generate must never be called concurrently,
// and Load/Close are each called at most once by Handle.
type Runtime interface {
	// Load prepares the model at modelPath. A failed Load leaves no
	// resources behind.
	Load(modelPath string, opts Options) error
	// Generate runs one generation to completion. There is no way to
	// interrupt it once started.
	Generate(prompt string, params Params) (Output, error)
	// Close releases resources acquired by Load.
	Close() error
}

// LlamaBuilt reports whether this binary carries the in-process llama runtime.
func LlamaBuilt() bool { return llamaBuilt }
