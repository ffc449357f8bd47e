// Package engine owns the single inference capability of the process. It is
// structured into small files by concern:
//
//   - handle.go: Handle, the load/execute/unload lifecycle around a Runtime.
//   - types.go: State, Options, Params and Output.
//   - runtime.go: the Runtime interface implemented by concrete backends.
//   - errors.go: LoadError, InferenceError and classifier helpers.
//   - modelpath.go: model file resolution (file or single-.gguf directory).
//   - runtime_server.go: llama.cpp llama-server reached over HTTP.
//
// Build tags and runtimes:
//
//   - In-process llama:
//     Uses the go-llama.cpp binding. Enabled with `-tags=llama`.
//     Files: runtime_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub exists when the tag is not set: runtime_llama_stub.go.
//
// A Handle is not safe for concurrent Execute calls. Serialization is the
// job of the admission gate; Handle only detects misuse and reports it.
package engine
