package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nmodel_path: /m/a.gguf\nn_gpu_layers: 0\nn_ctx: 2048\nmax_queue_depth: 0\nqueue_timeout_ms: 1500\nprompt_template: plain\ncors_allowed_origins: [\"http://a\", \"http://b\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelPath != "/m/a.gguf" || cfg.ContextSize != 2048 || cfg.QueueTimeoutMS != 1500 || cfg.PromptTemplate != "plain" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.GPULayers == nil || *cfg.GPULayers != 0 {
		t.Fatalf("explicit n_gpu_layers 0 lost: %v", cfg.GPULayers)
	}
	if cfg.MaxQueueDepth == nil || *cfg.MaxQueueDepth != 0 {
		t.Fatalf("explicit unbounded queue lost: %v", cfg.MaxQueueDepth)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","model_path":"/m","backend":"server","server_url":"http://llm:8080","max_queue_depth":8}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelPath != "/m" || cfg.Backend != BackendServer || cfg.ServerURL != "http://llm:8080" || cfg.QueueBound() != 8 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodel_path=\"/x\"\nn_threads=3\nlog_format=\"console\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelPath != "/x" || cfg.Threads != 3 || cfg.LogFormat != "console" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
