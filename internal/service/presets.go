package service

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"zonelight-agent/internal/model"
)

// PresetStore is CRUD-plus-apply over the named presets of one device
// category. Every category gets its own instance with independent
// in-memory state; the contract is identical across categories.
//
// All mutations write through the persistence boundary first; the
// in-memory dict only changes after the write succeeded.
type PresetStore struct {
	category     model.DeviceCategory
	zoneCount    int
	maxKeyframes int
	store        Persistence
	hub          Broadcaster
	device       DeviceLink
	resolver     *SettingsResolver

	mu      sync.RWMutex
	presets map[string]model.CustomRgbConfig
}

func NewPresetStore(category model.DeviceCategory, store Persistence, hub Broadcaster, device DeviceLink, resolver *SettingsResolver) *PresetStore {
	return &PresetStore{
		category:     category,
		zoneCount:    LayoutForCategory(category).ZoneCount,
		maxKeyframes: MaxKeyframesFor(category),
		store:        store,
		hub:          hub,
		device:       device,
		resolver:     resolver,
		presets:      map[string]model.CustomRgbConfig{},
	}
}

// Init loads this category's presets from the persistence boundary. An
// empty result is not an error state, just "nothing saved yet"; listeners
// are notified either way.
func (p *PresetStore) Init() {
	loaded := p.store.GetPresets(p.category)
	p.mu.Lock()
	p.presets = loaded
	p.mu.Unlock()
	p.hub.BroadcastEvent(model.NewEvent("presets.loaded", map[string]interface{}{
		"category": p.category, "count": len(loaded),
	}))
}

func (p *PresetStore) Category() model.DeviceCategory { return p.category }

func (p *PresetStore) ZoneCount() int { return p.zoneCount }

func (p *PresetStore) MaxKeyframes() int { return p.maxKeyframes }

func (p *PresetStore) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.presets))
	for name := range p.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *PresetStore) List() map[string]model.CustomRgbConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]model.CustomRgbConfig, len(p.presets))
	for name, cfg := range p.presets {
		out[name] = cfg.Clone()
	}
	return out
}

func (p *PresetStore) Get(name string) (model.CustomRgbConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.presets[name]
	if !ok {
		return model.CustomRgbConfig{}, false
	}
	return cfg.Clone(), true
}

func (p *PresetStore) validate(cfg model.CustomRgbConfig) error {
	if len(cfg.Keyframes) < 1 || len(cfg.Keyframes) > p.maxKeyframes {
		return fmt.Errorf("keyframe count %d out of range [1,%d]", len(cfg.Keyframes), p.maxKeyframes)
	}
	for i, f := range cfg.Keyframes {
		if len(f) != p.zoneCount {
			return fmt.Errorf("keyframe %d has %d zones, device wants %d", i, len(f), p.zoneCount)
		}
	}
	if cfg.Speed < 0 || cfg.Speed > MaxSpeed {
		return fmt.Errorf("speed %d out of range [0,%d]", cfg.Speed, MaxSpeed)
	}
	if cfg.Brightness < 0 || cfg.Brightness > 100 {
		return fmt.Errorf("brightness %d out of range [0,100]", cfg.Brightness)
	}
	return nil
}

// Save validates and persists a preset. Saving over the currently active
// preset reapplies it so live output matches the saved data.
func (p *PresetStore) Save(name string, cfg model.CustomRgbConfig) error {
	if name == "" {
		return fmt.Errorf("preset name is empty")
	}
	if err := p.validate(cfg); err != nil {
		return err
	}
	if err := p.store.SavePreset(p.category, name, cfg); err != nil {
		log.Printf("save preset %s/%q: %v", p.category, name, err)
		return err
	}
	p.mu.Lock()
	p.presets[name] = cfg.Clone()
	p.mu.Unlock()

	p.hub.BroadcastEvent(model.NewEvent("preset.saved", map[string]interface{}{
		"category": p.category, "name": name,
	}))
	if p.resolver.ActivePreset(p.category) == name {
		p.device.PushEnvelope(newZonedEnvelope(p.category, cfg.Clone()))
	}
	return nil
}

// deleteRaw removes a preset without touching the active-preset pointer.
// The timeline editor uses it for the second half of a rename.
func (p *PresetStore) deleteRaw(name string) error {
	p.mu.RLock()
	_, ok := p.presets[name]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	if err := p.store.DeletePreset(p.category, name); err != nil {
		log.Printf("delete preset %s/%q: %v", p.category, name, err)
		return err
	}
	p.mu.Lock()
	delete(p.presets, name)
	p.mu.Unlock()

	p.hub.BroadcastEvent(model.NewEvent("preset.deleted", map[string]interface{}{
		"category": p.category, "name": name,
	}))
	return nil
}

// forgetLocal drops a preset from the in-memory dict only. Rollback uses
// it when the persistence layer itself is unreachable.
func (p *PresetStore) forgetLocal(name string) {
	p.mu.Lock()
	delete(p.presets, name)
	p.mu.Unlock()
}

// Delete removes a preset. Deleting the active preset drops the device
// back to the default non-custom mode and reapplies settings.
func (p *PresetStore) Delete(name string) error {
	wasActive := p.resolver.ActivePreset(p.category) == name
	if err := p.deleteRaw(name); err != nil {
		return err
	}
	if wasActive {
		if err := p.resolver.SetActivePreset(p.category, ""); err != nil {
			log.Printf("clear active preset %s: %v", p.category, err)
		}
		if err := p.resolver.Set("mode", model.DefaultFallbackMode); err != nil {
			log.Printf("fallback mode after deleting %s/%q: %v", p.category, name, err)
		}
	}
	return nil
}

// Apply sends a named preset to the device, marks it active, and switches
// the global mode to custom RGB. An unknown name fails fast.
func (p *PresetStore) Apply(name string) error {
	cfg, ok := p.Get(name)
	if !ok {
		log.Printf("apply preset %s/%q: not found", p.category, name)
		return fmt.Errorf("preset %q not found", name)
	}

	p.device.PushEnvelope(newZonedEnvelope(p.category, cfg))
	if err := p.resolver.SetActivePreset(p.category, name); err != nil {
		return err
	}
	if err := p.resolver.Set("mode", model.ModeCustomRgb); err != nil {
		return err
	}
	p.hub.BroadcastEvent(model.NewEvent("preset.applied", map[string]interface{}{
		"category": p.category, "name": name,
	}))
	return nil
}
