package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"chatd/internal/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatd",
		Short:         "Chat-completion server for a single local model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve the HTTP API",
		Example: "  chatd serve --model-path ~/models/tinyllama.gguf\n" +
			"  chatd serve --config chatd.yaml --log-format console\n" +
			"  chatd serve --backend server --server-url http://127.0.0.1:8081 --model-path tinyllama.gguf",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.String("config", "", "Path to a .yaml, .json or .toml config file")
	f.String("env-file", ".env", "Optional .env file loaded before reading the environment")
	f.String("addr", "", "HTTP listen address, e.g. :8000 (env CHATD_ADDR)")
	f.String("model-path", "", "GGUF model file, or a directory with exactly one (env MODEL_PATH)")
	f.String("backend", "", "Inference runtime: llama|server (env CHATD_BACKEND)")
	f.String("server-url", "", "llama-server base URL for the server backend (env CHATD_SERVER_URL)")
	f.Int("n-gpu-layers", 0, "Layers to offload to the GPU, -1 for all (env N_GPU_LAYERS)")
	f.Int("n-ctx", 0, "Context window in tokens (env N_CTX)")
	f.Int("n-threads", 0, "CPU threads for generation (env N_THREADS)")
	f.Int("max-queue-depth", 0, "Maximum waiting requests, 0 for unbounded (env CHATD_MAX_QUEUE_DEPTH)")
	f.Int("queue-timeout-ms", 0, "Maximum time a request waits for the engine; 0 for the 30s default, -1 for no limit (env CHATD_QUEUE_TIMEOUT_MS)")
	f.Int("request-timeout-ms", 0, "Overall deadline for a completion request, 0 disables")
	f.Int("shutdown-timeout-ms", 0, "Maximum time to drain on shutdown")
	f.String("prompt-template", "", "Prompt template: chatml|plain (env CHATD_PROMPT_TEMPLATE)")
	f.String("log-level", "", "Log level: debug|info|warn|error (env LOG_LEVEL)")
	f.String("log-format", "", "Log format: json|console (env CHATD_LOG_FORMAT)")
	f.String("cors-origins", "", "Comma-separated allowed CORS origins; enables CORS (env CHATD_CORS_ORIGINS)")
	return cmd
}

// resolveConfig layers configuration: file, then .env and environment, then
// explicitly set flags, then defaults.
func resolveConfig(f *pflag.FlagSet) (config.Config, error) {
	var cfg config.Config
	if path, _ := f.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	envFile, _ := f.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyFlags(f, &cfg)
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlags(f *pflag.FlagSet, cfg *config.Config) {
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	num := func(name string, set func(int)) {
		if f.Changed(name) {
			n, _ := f.GetInt(name)
			set(n)
		}
	}
	str("addr", &cfg.Addr)
	str("model-path", &cfg.ModelPath)
	str("backend", &cfg.Backend)
	str("server-url", &cfg.ServerURL)
	str("prompt-template", &cfg.PromptTemplate)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	num("n-gpu-layers", func(n int) { cfg.GPULayers = &n })
	num("n-ctx", func(n int) { cfg.ContextSize = n })
	num("n-threads", func(n int) { cfg.Threads = n })
	num("max-queue-depth", func(n int) { cfg.MaxQueueDepth = &n })
	num("queue-timeout-ms", func(n int) { cfg.QueueTimeoutMS = n })
	num("request-timeout-ms", func(n int) { cfg.RequestTimeoutMS = n })
	num("shutdown-timeout-ms", func(n int) { cfg.ShutdownTimeoutMS = n })
	if f.Changed("cors-origins") {
		v, _ := f.GetString("cors-origins")
		cfg.CORSOrigins = config.SplitCSV(v)
		cfg.CORSEnabled = len(cfg.CORSOrigins) > 0
	}
}
