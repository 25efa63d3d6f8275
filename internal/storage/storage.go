package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zonelight-agent/internal/model"
)

// Store persists the whole settings/preset tree as one JSON file. All
// mutators write through to disk first in the sense that the in-memory
// state is rolled back when the write fails, so a failed save never leaves
// a partial mutation behind.
type Store struct {
	path  string
	mu    sync.RWMutex
	state model.StoredState
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = defaultState()
			return s.saveLocked()
		}
		return err
	}
	if len(b) == 0 {
		s.state = defaultState()
		return s.saveLocked()
	}

	var state model.StoredState
	if err := json.Unmarshal(b, &state); err != nil {
		return err
	}
	mergeDefaults(&state)
	s.state = state
	return nil
}

func defaultState() model.StoredState {
	return model.StoredState{
		Settings:  model.DefaultSettingsData(),
		Presets:   map[model.DeviceCategory]map[string]model.CustomRgbConfig{},
		CreatedAt: time.Now().UTC(),
	}
}

func mergeDefaults(state *model.StoredState) {
	if state.Settings.PerApp == nil {
		state.Settings.PerApp = map[string]model.AppRgbData{}
	}
	if _, ok := state.Settings.PerApp[model.DefaultAppID]; !ok {
		state.Settings.PerApp[model.DefaultAppID] = model.AppRgbData{Default: model.DefaultRgbSetting()}
	}
	if state.Settings.ActivePreset == nil {
		state.Settings.ActivePreset = map[model.DeviceCategory]string{}
	}
	if state.Presets == nil {
		state.Presets = map[model.DeviceCategory]map[string]model.CustomRgbConfig{}
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
}

func (s *Store) saveLocked() error {
	s.state.LastUpdatedUnixMS = time.Now().UnixMilli()
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

func (s *Store) GetSettings() model.SettingsData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings.Clone()
}

func (s *Store) SetSettings(settings model.SettingsData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state.Settings
	s.state.Settings = settings.Clone()
	if err := s.saveLocked(); err != nil {
		s.state.Settings = prev
		return err
	}
	return nil
}

// GetPresets returns a deep copy of the named-preset dictionary for one
// device category. A category with nothing saved yet yields an empty map.
func (s *Store) GetPresets(category model.DeviceCategory) map[string]model.CustomRgbConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]model.CustomRgbConfig{}
	for name, cfg := range s.state.Presets[category] {
		out[name] = cfg.Clone()
	}
	return out
}

func (s *Store) GetPreset(category model.DeviceCategory, name string) (model.CustomRgbConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.state.Presets[category][name]
	if !ok {
		return model.CustomRgbConfig{}, false
	}
	return cfg.Clone(), true
}

func (s *Store) SavePreset(category model.DeviceCategory, name string, cfg model.CustomRgbConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dict, existed := s.state.Presets[category]
	if dict == nil {
		dict = map[string]model.CustomRgbConfig{}
		s.state.Presets[category] = dict
	}
	prev, hadPrev := dict[name]
	dict[name] = cfg.Clone()
	if err := s.saveLocked(); err != nil {
		if hadPrev {
			dict[name] = prev
		} else {
			delete(dict, name)
			if !existed {
				delete(s.state.Presets, category)
			}
		}
		return err
	}
	return nil
}

func (s *Store) DeletePreset(category model.DeviceCategory, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dict := s.state.Presets[category]
	prev, ok := dict[name]
	if !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	delete(dict, name)
	if err := s.saveLocked(); err != nil {
		dict[name] = prev
		return err
	}
	return nil
}

func (s *Store) Snapshot() model.StoredState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, _ := json.Marshal(s.state)
	var cloned model.StoredState
	_ = json.Unmarshal(b, &cloned)
	return cloned
}
