package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var ErrPresetNotFound = errors.New("puppet not found")

// PresetStore reads presets from a JSON document keyed by name. The file is
// re-read on every call so edits show up without a restart.
type PresetStore struct {
	mu   sync.Mutex
	Path string
}

func NewPresetStore(path string) *PresetStore {
	return &PresetStore{Path: path}
}

func (s *PresetStore) load() (map[string]Preset, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Preset{}, nil
	}
	if err != nil {
		return nil, err
	}
	presets := map[string]Preset{}
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return presets, nil
}

// Names returns the preset names in sorted order.
func (s *PresetStore) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *PresetStore) Get(name string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return Preset{}, err
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, ErrPresetNotFound
	}
	return p, nil
}

// Save adds or replaces a preset, writing the document atomically.
func (s *PresetStore) Save(name string, p Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return err
	}
	presets[name] = p

	data, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}
