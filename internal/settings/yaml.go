package settings

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// YAMLStore keeps settings as a flat map in a YAML file. The file is re-read on
// every Get so hand edits are picked up without a restart.
type YAMLStore struct {
	path string
	mu   sync.Mutex
}

func NewYAMLStore(path string) (*YAMLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("yaml settings path required")
	}
	return &YAMLStore{path: path}, nil
}

func (s *YAMLStore) Backend() string { return "yaml" }

func (s *YAMLStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, accessError("yaml", "get", key, err)
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *YAMLStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return accessError("yaml", "set", key, err)
	}
	values[key] = value

	data, err := yaml.Marshal(values)
	if err != nil {
		return accessError("yaml", "set", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.yaml")
	if err != nil {
		return accessError("yaml", "set", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return accessError("yaml", "set", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return accessError("yaml", "set", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return accessError("yaml", "set", key, err)
	}
	return nil
}

func (s *YAMLStore) Close() error { return nil }

func (s *YAMLStore) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}
