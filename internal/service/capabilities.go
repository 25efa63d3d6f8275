package service

import (
	"time"

	"zonelight-agent/internal/model"

	"github.com/google/uuid"
)

var maxKeyframesByCategory = map[model.DeviceCategory]int{
	model.CategoryMSIClaw:  8,
	model.CategoryLegionGo: 8,
	model.CategoryROGAlly:  6,
}

const defaultMaxKeyframes = 8

// MaxKeyframesFor is the device-specific cap on timeline length.
func MaxKeyframesFor(category model.DeviceCategory) int {
	if n, ok := maxKeyframesByCategory[category]; ok {
		return n
	}
	return defaultMaxKeyframes
}

// DeviceCapabilitiesFor reports what the hardware for one category can do;
// the panel consults this to decide which controls to show.
func DeviceCapabilitiesFor(category model.DeviceCategory) model.DeviceCapabilities {
	layout := LayoutForCategory(category)
	return model.DeviceCapabilities{
		DeviceType:         layout.DeviceType,
		Zones:              layout.ZoneCount,
		CustomRgbSupported: true,
		MaxKeyframes:       MaxKeyframesFor(category),
		SecondaryZone:      category == model.CategoryMSIClaw,
	}
}

var modeCapabilities = map[model.LightMode]model.ModeCapability{
	model.ModeSolid:     {Color: true, Color2: true, BrightnessLevel: true, Zones: []int{0, 1}},
	model.ModePulse:     {Color: true, Speed: true, BrightnessLevel: true, Zones: []int{0, 1}},
	model.ModeRainbow:   {Speed: true, BrightnessLevel: true, Zones: []int{0, 1}},
	model.ModeCustomRgb: {Color: true, Speed: true, Zones: []int{0, 1}},
	model.ModeOff:       {},
}

// ModeCapabilities returns the per-mode control table.
func ModeCapabilities() map[model.LightMode]model.ModeCapability {
	out := make(map[model.LightMode]model.ModeCapability, len(modeCapabilities))
	for mode, caps := range modeCapabilities {
		out[mode] = caps
	}
	return out
}

func newModeEnvelope(category model.DeviceCategory, payload model.ModeConfigPayload) model.DeviceEnvelope {
	return model.DeviceEnvelope{
		ID:        uuid.NewString(),
		Category:  category,
		Kind:      model.EnvelopeModeConfig,
		Mode:      &payload,
		CreatedAt: time.Now().UnixMilli(),
	}
}

func newZonedEnvelope(category model.DeviceCategory, cfg model.CustomRgbConfig) model.DeviceEnvelope {
	return model.DeviceEnvelope{
		ID:        uuid.NewString(),
		Category:  category,
		Kind:      model.EnvelopeZonedRgb,
		Zoned:     &model.ZonedRgbPayload{Config: cfg},
		CreatedAt: time.Now().UnixMilli(),
	}
}
