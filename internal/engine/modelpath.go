package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveModelPath returns the absolute path of the model file to load.
// path may name a model file directly or a directory holding exactly one
// *.gguf file. A leading '~' is expanded.
func ResolveModelPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("model path is empty")
	}
	base, err := expandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("model file not found: %w", err)
	}
	if !fi.IsDir() {
		return abs, nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			found = append(found, filepath.Join(abs, e.Name()))
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no *.gguf model in %s", abs)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%d *.gguf models in %s, expected exactly one", len(found), abs)
	}
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
