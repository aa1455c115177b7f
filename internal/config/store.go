package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ConfigBackend is a flat key/value source. Values are handed out as their
// textual form and parsed by the key table.
type ConfigBackend interface {
	Lookup(key string) (string, bool)
	Store(key string, value any) error
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "imgask")
}

func configFilePath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "imgask", "config.json")
}

// secretsFilePath is under the data dir, not next to config.json.
func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

// jsonFile is a ConfigBackend persisted as one flat JSON object. Both the
// config file and the secrets file use it; every write is owner-only.
type jsonFile struct {
	path   string
	values map[string]json.RawMessage
}

func openJSONFile(path string) *jsonFile {
	f := &jsonFile{path: path, values: map[string]json.RawMessage{}}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		slog.Warn("config file unreadable, using defaults", "path", path, "error", err)
	default:
		if err := json.Unmarshal(data, &f.values); err != nil {
			slog.Warn("config file is not valid JSON, using defaults", "path", path, "error", err)
			f.values = map[string]json.RawMessage{}
		}
	}
	return f
}

// Lookup returns strings unquoted and any other JSON value as written, so
// 5000 and "5000" read the same.
func (f *jsonFile) Lookup(key string) (string, bool) {
	raw, ok := f.values[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(bytes.TrimSpace(raw)), true
}

func (f *jsonFile) Store(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	f.values[key] = raw

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(f.path), err)
	}
	out, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, append(out, '\n'), 0o600)
}
