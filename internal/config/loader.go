package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// decoders maps a lower-cased file extension to a strict decoder: keys that
// do not name a Config field are errors, so a misspelled setting fails
// startup instead of silently keeping its default.
var decoders = map[string]func([]byte, *Config) error{
	".yaml": decodeYAML,
	".yml":  decodeYAML,
	".json": decodeJSON,
	".toml": decodeTOML,
}

// Load reads a YAML, JSON or TOML configuration file, picked by extension.
// The result has no defaults applied.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return cfg, fmt.Errorf("unsupported config extension %q (want .yaml, .yml, .json or .toml)", ext)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := decode(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeJSON(b []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func decodeTOML(b []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}
