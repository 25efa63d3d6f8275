package service

import (
	"fmt"
	"sync"
	"time"

	"zonelight-agent/internal/model"

	"github.com/bep/debounce"
)

// Persistence is the slice of the storage boundary the services need.
type Persistence interface {
	GetSettings() model.SettingsData
	SetSettings(settings model.SettingsData) error
	GetPresets(category model.DeviceCategory) map[string]model.CustomRgbConfig
	SavePreset(category model.DeviceCategory, name string, cfg model.CustomRgbConfig) error
	DeletePreset(category model.DeviceCategory, name string) error
}

// SettingsResolver owns the layered settings tree and resolves the
// effective RgbSetting for the current application and power state:
// global default, then per-app override, then per-power-source override.
// Every read and write of a lighting property funnels through here.
type SettingsResolver struct {
	store    Persistence
	hub      Broadcaster
	device   DeviceLink
	category model.DeviceCategory

	mu        sync.RWMutex
	data      model.SettingsData
	activeApp string
	power     model.PowerState

	debounced func(f func())
}

func NewSettingsResolver(store Persistence, hub Broadcaster, device DeviceLink, category model.DeviceCategory, applyQuiet time.Duration) *SettingsResolver {
	return &SettingsResolver{
		store:     store,
		hub:       hub,
		device:    device,
		category:  category,
		data:      store.GetSettings(),
		activeApp: model.DefaultAppID,
		power:     model.PowerAC,
		debounced: debounce.New(applyQuiet),
	}
}

// resolveAppLocked picks the application entry the current context maps
// to: the active app when it exists and has its override enabled, else
// the reserved default entry.
func (r *SettingsResolver) resolveAppLocked() string {
	if entry, ok := r.data.PerApp[r.activeApp]; ok && entry.Overwrite {
		return r.activeApp
	}
	return model.DefaultAppID
}

// effectiveLocked returns a copy of the contextually-correct RgbSetting.
func (r *SettingsResolver) effectiveLocked() model.RgbSetting {
	entry := r.data.PerApp[r.resolveAppLocked()]
	if !entry.ACStateOverwrite {
		return entry.Default
	}
	var slot *model.RgbSetting
	if r.power == model.PowerAC {
		slot = entry.AC
	} else {
		slot = entry.Battery
	}
	if slot == nil {
		return entry.Default
	}
	return *slot
}

func (r *SettingsResolver) Effective() model.RgbSetting {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.effectiveLocked()
}

// EffectiveRGB derives the device-ready primary and secondary tuples from
// the effective setting. These are computed on read, never stored.
func (r *SettingsResolver) EffectiveRGB() (model.RGB, model.RGB) {
	s := r.Effective()
	primary := HSVToRGB(float64(s.Hue), float64(s.Saturation), float64(s.Brightness))
	secondary := HSVToRGB(float64(s.Hue2), float64(s.Saturation2), float64(s.Brightness2))
	return primary, secondary
}

func (r *SettingsResolver) Get(key string) (interface{}, error) {
	s := r.Effective()
	switch key {
	case "mode":
		return s.Mode, nil
	case "hue":
		return s.Hue, nil
	case "saturation":
		return s.Saturation, nil
	case "brightness":
		return s.Brightness, nil
	case "hue2":
		return s.Hue2, nil
	case "saturation2":
		return s.Saturation2, nil
	case "brightness2":
		return s.Brightness2, nil
	case "speed":
		return s.Speed, nil
	case "brightness_level":
		return s.BrightnessLevel, nil
	default:
		return nil, fmt.Errorf("unknown setting key %q", key)
	}
}

// Set writes one property of the contextually-resolved setting, persists
// the tree, and schedules a debounced device apply. A failed persist
// leaves the in-memory tree unchanged.
func (r *SettingsResolver) Set(key string, value interface{}) error {
	r.mu.Lock()
	prev := r.data
	next := r.data.Clone()

	appID := r.resolveAppLocked()
	entry := next.PerApp[appID]
	target := &entry.Default
	if entry.ACStateOverwrite {
		if r.power == model.PowerAC && entry.AC != nil {
			target = entry.AC
		} else if r.power == model.PowerBattery && entry.Battery != nil {
			target = entry.Battery
		}
	}

	if err := applySettingKey(target, key, value); err != nil {
		r.mu.Unlock()
		return err
	}
	next.PerApp[appID] = entry
	r.data = next
	if err := r.store.SetSettings(next); err != nil {
		r.data = prev
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.hub.BroadcastEvent(model.NewEvent("settings.updated", map[string]interface{}{
		"app": appID, "key": key, "value": value,
	}))
	r.ScheduleApply()
	return nil
}

func applySettingKey(s *model.RgbSetting, key string, value interface{}) error {
	switch key {
	case "mode":
		mode, ok := value.(model.LightMode)
		if !ok {
			if str, strOK := value.(string); strOK {
				mode, ok = model.LightMode(str), true
			}
		}
		if !ok {
			return fmt.Errorf("mode wants a string, got %T", value)
		}
		if _, supported := model.SupportedModes[mode]; !supported {
			return fmt.Errorf("unsupported mode %q", mode)
		}
		s.Mode = mode
		return nil
	}

	n, err := intValue(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	switch key {
	case "hue":
		s.Hue = normalizeHue(n)
	case "saturation":
		if n < 0 || n > 100 {
			return fmt.Errorf("saturation %d out of range [0,100]", n)
		}
		s.Saturation = n
	case "brightness":
		if n < 0 || n > 100 {
			return fmt.Errorf("brightness %d out of range [0,100]", n)
		}
		s.Brightness = n
	case "hue2":
		s.Hue2 = normalizeHue(n)
	case "saturation2":
		if n < 0 || n > 100 {
			return fmt.Errorf("saturation2 %d out of range [0,100]", n)
		}
		s.Saturation2 = n
	case "brightness2":
		if n < 0 || n > 100 {
			return fmt.Errorf("brightness2 %d out of range [0,100]", n)
		}
		s.Brightness2 = n
	case "speed":
		if n < 0 || n > MaxSpeed {
			return fmt.Errorf("speed %d out of range [0,%d]", n, MaxSpeed)
		}
		s.Speed = n
	case "brightness_level":
		if n < 0 || n > 4 {
			return fmt.Errorf("brightness level %d out of range [0,4]", n)
		}
		s.BrightnessLevel = n
	default:
		return fmt.Errorf("unknown setting key %q", key)
	}
	return nil
}

// normalizeHue wraps hue into [0,360); 360 is the same color as 0.
func normalizeHue(h int) int {
	h %= 360
	if h < 0 {
		h += 360
	}
	return h
}

func intValue(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("want a number, got %T", v)
	}
}

// CreateAppOverride registers a per-application entry, seeded from the
// global default setting, and enables it.
func (r *SettingsResolver) CreateAppOverride(appID string) error {
	if appID == "" || appID == model.DefaultAppID {
		return fmt.Errorf("invalid app id %q", appID)
	}
	r.mu.Lock()
	prev := r.data
	next := r.data.Clone()
	entry, ok := next.PerApp[appID]
	if !ok {
		entry = model.AppRgbData{Default: next.PerApp[model.DefaultAppID].Default}
	}
	entry.Overwrite = true
	next.PerApp[appID] = entry
	r.data = next
	if err := r.store.SetSettings(next); err != nil {
		r.data = prev
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.hub.BroadcastEvent(model.NewEvent("settings.app_override", map[string]string{"app": appID}))
	return nil
}

// EnableACOverride turns on per-power-source settings for an app. The AC
// and battery slots are cloned from the current default exactly once; they
// diverge independently afterwards.
func (r *SettingsResolver) EnableACOverride(appID string) error {
	r.mu.Lock()
	prev := r.data
	next := r.data.Clone()
	entry, ok := next.PerApp[appID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("no settings entry for app %q", appID)
	}
	if !entry.ACStateOverwrite {
		entry.ACStateOverwrite = true
		if entry.AC == nil && entry.Battery == nil {
			ac := entry.Default
			bat := entry.Default
			entry.AC = &ac
			entry.Battery = &bat
		}
	}
	next.PerApp[appID] = entry
	r.data = next
	if err := r.store.SetSettings(next); err != nil {
		r.data = prev
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.hub.BroadcastEvent(model.NewEvent("settings.ac_override", map[string]string{"app": appID}))
	return nil
}

// SetActiveApp records the externally-owned active-application signal and
// re-resolves so displayed values track the new context.
func (r *SettingsResolver) SetActiveApp(appID string) {
	if appID == "" {
		appID = model.DefaultAppID
	}
	r.mu.Lock()
	changed := r.activeApp != appID
	r.activeApp = appID
	r.mu.Unlock()
	if !changed {
		return
	}
	r.hub.BroadcastEvent(model.NewEvent("settings.context_changed", map[string]string{"app": appID}))
	r.ScheduleApply()
}

// SetPowerState records the AC/battery signal; same re-resolve semantics
// as SetActiveApp.
func (r *SettingsResolver) SetPowerState(state model.PowerState) {
	r.mu.Lock()
	changed := r.power != state
	r.power = state
	r.mu.Unlock()
	if !changed {
		return
	}
	r.hub.BroadcastEvent(model.NewEvent("settings.context_changed", map[string]string{"power": string(state)}))
	r.ScheduleApply()
}

func (r *SettingsResolver) PowerState() model.PowerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.power
}

func (r *SettingsResolver) ActiveApp() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeApp
}

func (r *SettingsResolver) Settings() model.SettingsData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.Clone()
}

// ActivePreset reads one category's active-preset pointer. The resolver
// serves every category's preset store, so the category is always the
// caller's, never the resolver's own apply target.
func (r *SettingsResolver) ActivePreset(category model.DeviceCategory) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data.ActivePreset[category]
}

// SetActivePreset updates one category's active-preset pointer (empty
// clears it) and persists the tree.
func (r *SettingsResolver) SetActivePreset(category model.DeviceCategory, name string) error {
	r.mu.Lock()
	prev := r.data
	next := r.data.Clone()
	if name == "" {
		delete(next.ActivePreset, category)
	} else {
		next.ActivePreset[category] = name
	}
	r.data = next
	if err := r.store.SetSettings(next); err != nil {
		r.data = prev
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()
	return nil
}

// ScheduleApply coalesces rapid successive settings changes (slider drags)
// into a single device-apply call after a short quiet window. Last write
// wins.
func (r *SettingsResolver) ScheduleApply() {
	r.debounced(r.applyNow)
}

func (r *SettingsResolver) applyNow() {
	s := r.Effective()
	primary, secondary := r.EffectiveRGB()
	payload := model.ModeConfigPayload{
		Mode:       s.Mode,
		Primary:    primary,
		Brightness: s.Brightness,
	}
	if caps, ok := modeCapabilities[s.Mode]; ok && caps.Color2 {
		payload.Secondary = &secondary
	}
	r.device.PushEnvelope(newModeEnvelope(r.category, payload))
}
