package service

import (
	"errors"
	"sync"

	"zonelight-agent/internal/model"
)

type captureHub struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *captureHub) BroadcastEvent(evt model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureHub) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type captureLink struct {
	mu        sync.Mutex
	envelopes []model.DeviceEnvelope
}

func (c *captureLink) PushEnvelope(env model.DeviceEnvelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envelopes = append(c.envelopes, env)
}

func (c *captureLink) all() []model.DeviceEnvelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.DeviceEnvelope, len(c.envelopes))
	copy(out, c.envelopes)
	return out
}

func (c *captureLink) lastZoned() (model.DeviceEnvelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.envelopes) - 1; i >= 0; i-- {
		if c.envelopes[i].Kind == model.EnvelopeZonedRgb {
			return c.envelopes[i], true
		}
	}
	return model.DeviceEnvelope{}, false
}

// fakeStore is an in-memory Persistence with switchable write failures.
type fakeStore struct {
	mu          sync.Mutex
	settings    model.SettingsData
	presets     map[model.DeviceCategory]map[string]model.CustomRgbConfig
	failSet     bool
	failSave    bool
	failDelete  bool
	setCount    int
	saveCount   int
	deleteCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: model.DefaultSettingsData(),
		presets:  map[model.DeviceCategory]map[string]model.CustomRgbConfig{},
	}
}

func (f *fakeStore) GetSettings() model.SettingsData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings.Clone()
}

func (f *fakeStore) SetSettings(settings model.SettingsData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCount++
	if f.failSet {
		return errors.New("persistence down")
	}
	f.settings = settings.Clone()
	return nil
}

func (f *fakeStore) GetPresets(category model.DeviceCategory) map[string]model.CustomRgbConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]model.CustomRgbConfig{}
	for name, cfg := range f.presets[category] {
		out[name] = cfg.Clone()
	}
	return out
}

func (f *fakeStore) SavePreset(category model.DeviceCategory, name string, cfg model.CustomRgbConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCount++
	if f.failSave {
		return errors.New("persistence down")
	}
	if f.presets[category] == nil {
		f.presets[category] = map[string]model.CustomRgbConfig{}
	}
	f.presets[category][name] = cfg.Clone()
	return nil
}

func (f *fakeStore) DeletePreset(category model.DeviceCategory, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCount++
	if f.failDelete {
		return errors.New("persistence down")
	}
	if _, ok := f.presets[category][name]; !ok {
		return errors.New("not found")
	}
	delete(f.presets[category], name)
	return nil
}
