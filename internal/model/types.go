package model

import "time"

type DeviceCategory string

const (
	CategoryMSIClaw  DeviceCategory = "msi-claw"
	CategoryLegionGo DeviceCategory = "legion-go"
	CategoryROGAlly  DeviceCategory = "rog-ally"
)

var SupportedCategories = map[DeviceCategory]struct{}{
	CategoryMSIClaw:  {},
	CategoryLegionGo: {},
	CategoryROGAlly:  {},
}

type LightMode string

const (
	ModeSolid     LightMode = "solid"
	ModePulse     LightMode = "pulse"
	ModeRainbow   LightMode = "rainbow"
	ModeCustomRgb LightMode = "custom_rgb"
	ModeOff       LightMode = "off"
)

var SupportedModes = map[LightMode]struct{}{
	ModeSolid:     {},
	ModePulse:     {},
	ModeRainbow:   {},
	ModeCustomRgb: {},
	ModeOff:       {},
}

// DefaultFallbackMode is what the device falls back to when the active
// custom preset is deleted out from under it.
const DefaultFallbackMode = ModeSolid

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Keyframe is a complete per-zone color snapshot. Its length always equals
// the owning device's zone count; it is never sparse.
type Keyframe []RGB

func (k Keyframe) Clone() Keyframe {
	if k == nil {
		return nil
	}
	out := make(Keyframe, len(k))
	copy(out, k)
	return out
}

// BlackKeyframe returns an all-off frame for the given zone count.
func BlackKeyframe(zones int) Keyframe {
	return make(Keyframe, zones)
}

// CustomRgbConfig is a looping keyframe animation: an ordered timeline of
// per-zone snapshots plus the speed and brightness it plays at.
type CustomRgbConfig struct {
	Speed      int        `json:"speed"`
	Brightness int        `json:"brightness"`
	Keyframes  []Keyframe `json:"keyframes"`
}

func (c CustomRgbConfig) Clone() CustomRgbConfig {
	out := CustomRgbConfig{Speed: c.Speed, Brightness: c.Brightness}
	out.Keyframes = make([]Keyframe, 0, len(c.Keyframes))
	for _, f := range c.Keyframes {
		out.Keyframes = append(out.Keyframes, f.Clone())
	}
	return out
}

// NewCustomRgbConfig is the fresh editing default: one all-black keyframe,
// mid speed, full brightness.
func NewCustomRgbConfig(zones int) CustomRgbConfig {
	return CustomRgbConfig{
		Speed:      10,
		Brightness: 100,
		Keyframes:  []Keyframe{BlackKeyframe(zones)},
	}
}

// RgbSetting is one resolved lighting configuration. Hue is in [0,360),
// saturation and brightness in [0,100]. The secondary fields drive a second
// LED group on devices that have one.
type RgbSetting struct {
	Mode            LightMode `json:"mode"`
	Hue             int       `json:"hue"`
	Saturation      int       `json:"saturation"`
	Brightness      int       `json:"brightness"`
	Hue2            int       `json:"hue2"`
	Saturation2     int       `json:"saturation2"`
	Brightness2     int       `json:"brightness2"`
	Speed           int       `json:"speed"`
	BrightnessLevel int       `json:"brightness_level"`
}

func DefaultRgbSetting() RgbSetting {
	return RgbSetting{
		Mode:            ModeSolid,
		Hue:             0,
		Saturation:      100,
		Brightness:      100,
		Hue2:            0,
		Saturation2:     100,
		Brightness2:     100,
		Speed:           10,
		BrightnessLevel: 2,
	}
}

// AppRgbData is the per-application settings bundle. AC and Battery stay
// nil until the user first enables the AC-state override, at which point
// both are cloned from Default.
type AppRgbData struct {
	Overwrite        bool        `json:"overwrite"`
	ACStateOverwrite bool        `json:"ac_state_overwrite"`
	Default          RgbSetting  `json:"default_setting"`
	AC               *RgbSetting `json:"ac_setting,omitempty"`
	Battery          *RgbSetting `json:"bat_setting,omitempty"`
}

func (a AppRgbData) Clone() AppRgbData {
	out := a
	if a.AC != nil {
		cp := *a.AC
		out.AC = &cp
	}
	if a.Battery != nil {
		cp := *a.Battery
		out.Battery = &cp
	}
	return out
}

// DefaultAppID is the reserved global-fallback application entry. It is
// always present after store initialization.
const DefaultAppID = "0"

type SettingsData struct {
	PerApp             map[string]AppRgbData     `json:"per_app"`
	SuspendMode        string                    `json:"suspend_mode"`
	PowerLedEnabled    bool                      `json:"power_led_enabled"`
	PowerLedSuspendOff bool                      `json:"power_led_suspend_off"`
	ActivePreset       map[DeviceCategory]string `json:"active_preset"`
}

func (s SettingsData) Clone() SettingsData {
	out := s
	out.PerApp = make(map[string]AppRgbData, len(s.PerApp))
	for id, app := range s.PerApp {
		out.PerApp[id] = app.Clone()
	}
	out.ActivePreset = make(map[DeviceCategory]string, len(s.ActivePreset))
	for cat, name := range s.ActivePreset {
		out.ActivePreset[cat] = name
	}
	return out
}

func DefaultSettingsData() SettingsData {
	return SettingsData{
		PerApp: map[string]AppRgbData{
			DefaultAppID: {Default: DefaultRgbSetting()},
		},
		SuspendMode:     "oem",
		PowerLedEnabled: true,
		ActivePreset:    map[DeviceCategory]string{},
	}
}

type PowerState string

const (
	PowerAC      PowerState = "ac"
	PowerBattery PowerState = "battery"
)

// DeviceCapabilities is what a connected hardware client reports about
// itself; the UI consults it to decide which controls are meaningful.
type DeviceCapabilities struct {
	DeviceType         string `json:"device_type"`
	Zones              int    `json:"zones"`
	CustomRgbSupported bool   `json:"custom_rgb_supported"`
	MaxKeyframes       int    `json:"max_keyframes"`
	SecondaryZone      bool   `json:"secondary_zone"`
}

// ModeCapability says which controls a lighting mode responds to.
type ModeCapability struct {
	Color           bool  `json:"color"`
	Color2          bool  `json:"color2"`
	Speed           bool  `json:"speed"`
	BrightnessLevel bool  `json:"brightness_level"`
	Zones           []int `json:"zones"`
}

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	CreatedAt int64       `json:"created_at_unix_ms"`
}

func NewEvent(typ string, payload interface{}) Event {
	return Event{Type: typ, Payload: payload, CreatedAt: time.Now().UnixMilli()}
}

const (
	EnvelopeModeConfig = "mode_config"
	EnvelopeZonedRgb   = "zoned_rgb"
)

// ModeConfigPayload is the classic single/dual-color apply call.
type ModeConfigPayload struct {
	Mode       LightMode `json:"mode"`
	Primary    RGB       `json:"primary"`
	Primary2   *RGB      `json:"primary2,omitempty"`
	Secondary  *RGB      `json:"secondary,omitempty"`
	Brightness int       `json:"brightness"`
}

// ZonedRgbPayload carries a keyframe timeline; the same shape serves both
// live preview while editing and committing a saved preset.
type ZonedRgbPayload struct {
	Config CustomRgbConfig `json:"config"`
}

// DeviceEnvelope is the device-apply boundary message pushed to the
// hardware client responsible for one device category.
type DeviceEnvelope struct {
	ID        string             `json:"id"`
	Category  DeviceCategory     `json:"category"`
	Kind      string             `json:"kind"`
	Mode      *ModeConfigPayload `json:"mode_config,omitempty"`
	Zoned     *ZonedRgbPayload   `json:"zoned_rgb,omitempty"`
	CreatedAt int64              `json:"created_at_unix_ms"`
}

// StoredState is the whole persisted tree: the layered settings plus the
// per-category named preset dictionaries.
type StoredState struct {
	Settings          SettingsData                                  `json:"settings"`
	Presets           map[DeviceCategory]map[string]CustomRgbConfig `json:"presets"`
	CreatedAt         time.Time                                     `json:"created_at"`
	LastUpdatedUnixMS int64                                         `json:"last_updated_unix_ms"`
}
