//go:build llama

package engine

import (
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with in-process llama support.
var llamaBuilt = true

// llamaRuntime owns one go-llama.cpp model.
type llamaRuntime struct {
	model   *llama.LLama
	threads int
}

// NewLlamaRuntime returns the in-process go-llama.cpp runtime.
func NewLlamaRuntime() Runtime { return &llamaRuntime{} }

func (r *llamaRuntime) Load(modelPath string, opts Options) error {
	if strings.TrimSpace(modelPath) == "" {
		return errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(zn(opts.ContextSize, 4096)),
	}
	if opts.GPULayers != 0 {
		mo = append(mo, llama.SetGPULayers(opts.GPULayers))
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return err
	}
	r.model = m
	r.threads = opts.Threads
	return nil
}

func (r *llamaRuntime) Generate(prompt string, params Params) (Output, error) {
	if r.model == nil {
		return Output{}, errors.New("llama model not initialized")
	}
	n := 0
	r.model.SetTokenCallback(func(string) bool {
		n++
		return true
	})
	text, err := r.model.Predict(prompt, predictOptions(params, r.threads)...)
	if err != nil {
		return Output{}, err
	}
	// go-llama.cpp does not surface the stop cause; the chat layer derives it.
	return Output{Text: text, CompletionTokens: n}, nil
}

func (r *llamaRuntime) Close() error {
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts Params into go-llama.cpp options.
func predictOptions(params Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		// temperature 0 is a valid greedy setting and passes through unchanged
		llama.SetTemperature(params.Temperature),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
