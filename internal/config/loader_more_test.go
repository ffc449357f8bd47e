package config

import (
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "addr": ":8080", "model_path": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "addr=:8080\nmodel_path\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestLoad_UnknownKeysRejected(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"typo.yaml": "addr: :8080\nqueue_timout_ms: 10\n",
		"typo.json": `{"addr":":8080","max_queue":3}`,
		"typo.toml": "addr=\":8080\"\nthreads=4\n",
	}
	for name, body := range cases {
		p := writeTempFile(t, d, name, body)
		if _, err := Load(p); err == nil {
			t.Errorf("%s: expected unknown key error", name)
		}
	}
}

func TestLoad_EmptyYAMLIsZeroConfig(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "empty.yml", "")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "" || cfg.MaxQueueDepth != nil {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}
