package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"memestickers/internal/modules/pack/domain"
	packout "memestickers/internal/modules/pack/port/out"
)

type configDocument struct {
	Packs map[string]domain.PackConfig `json:"packs"`
}

// JSONConfigStore keeps every PackConfig in one config.json, rewritten
// wholesale through a temp file and rename.
type JSONConfigStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONConfigStore(path string) *JSONConfigStore {
	return &JSONConfigStore{path: filepath.Clean(path)}
}

var _ packout.ConfigStore = (*JSONConfigStore)(nil)

func (s *JSONConfigStore) Path() string { return s.path }

// Load returns an empty map when the file does not exist.
func (s *JSONConfigStore) Load(_ context.Context) (map[string]domain.PackConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]domain.PackConfig{}, nil
		}
		return nil, fmt.Errorf("read pack config: %w", err)
	}
	var doc configDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode pack config %s: %w", s.path, err)
	}
	if doc.Packs == nil {
		doc.Packs = map[string]domain.PackConfig{}
	}
	return doc.Packs, nil
}

func (s *JSONConfigStore) Save(_ context.Context, configs map[string]domain.PackConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := configDocument{Packs: configs}
	if doc.Packs == nil {
		doc.Packs = map[string]domain.PackConfig{}
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pack config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := writeFileAtomic(s.path, append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write pack config: %w", err)
	}
	return nil
}
