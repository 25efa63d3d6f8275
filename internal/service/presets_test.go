package service

import (
	"testing"
	"time"

	"zonelight-agent/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPresets(t *testing.T, category model.DeviceCategory) (*PresetStore, *SettingsResolver, *fakeStore, *captureHub, *captureLink) {
	t.Helper()
	store := newFakeStore()
	hub := &captureHub{}
	link := &captureLink{}
	resolver := NewSettingsResolver(store, hub, link, category, time.Millisecond)
	presets := NewPresetStore(category, store, hub, link, resolver)
	presets.Init()
	return presets, resolver, store, hub, link
}

func solidConfig(zones int, c model.RGB) model.CustomRgbConfig {
	frame := make(model.Keyframe, zones)
	for i := range frame {
		frame[i] = c
	}
	return model.CustomRgbConfig{Speed: 10, Brightness: 100, Keyframes: []model.Keyframe{frame}}
}

func TestPresetSaveAndGet(t *testing.T) {
	presets, _, store, hub, _ := newTestPresets(t, model.CategoryMSIClaw)
	cfg := solidConfig(presets.ZoneCount(), model.RGB{R: 255})

	require.NoError(t, presets.Save("flame", cfg))
	got, ok := presets.Get("flame")
	require.True(t, ok)
	assert.Equal(t, cfg, got)
	assert.Equal(t, []string{"flame"}, presets.Names())
	assert.Contains(t, store.GetPresets(model.CategoryMSIClaw), "flame")
	assert.Contains(t, hub.eventTypes(), "preset.saved")
}

func TestPresetGetReturnsIndependentCopy(t *testing.T) {
	presets, _, _, _, _ := newTestPresets(t, model.CategoryMSIClaw)
	require.NoError(t, presets.Save("flame", solidConfig(presets.ZoneCount(), model.RGB{R: 255})))

	got, _ := presets.Get("flame")
	got.Keyframes[0][0] = model.RGB{B: 255}
	again, _ := presets.Get("flame")
	assert.Equal(t, model.RGB{R: 255}, again.Keyframes[0][0])
}

func TestPresetSaveValidation(t *testing.T) {
	presets, _, _, _, _ := newTestPresets(t, model.CategoryROGAlly)

	assert.Error(t, presets.Save("", solidConfig(presets.ZoneCount(), model.RGB{})))

	cfg := solidConfig(presets.ZoneCount(), model.RGB{})
	cfg.Keyframes = nil
	assert.Error(t, presets.Save("empty", cfg), "zero keyframes")

	cfg = solidConfig(presets.ZoneCount()+1, model.RGB{})
	assert.Error(t, presets.Save("wide", cfg), "wrong zone count")

	cfg = solidConfig(presets.ZoneCount(), model.RGB{})
	for len(cfg.Keyframes) <= presets.MaxKeyframes() {
		cfg.Keyframes = append(cfg.Keyframes, cfg.Keyframes[0].Clone())
	}
	assert.Error(t, presets.Save("long", cfg), "over keyframe cap")

	cfg = solidConfig(presets.ZoneCount(), model.RGB{})
	cfg.Speed = MaxSpeed + 1
	assert.Error(t, presets.Save("fast", cfg))
}

func TestPresetSaveFailureLeavesMemoryUnchanged(t *testing.T) {
	presets, _, store, _, _ := newTestPresets(t, model.CategoryMSIClaw)
	store.failSave = true
	err := presets.Save("flame", solidConfig(presets.ZoneCount(), model.RGB{R: 255}))
	require.Error(t, err)
	_, ok := presets.Get("flame")
	assert.False(t, ok)
}

func TestPresetApply(t *testing.T) {
	presets, resolver, _, hub, link := newTestPresets(t, model.CategoryLegionGo)
	cfg := solidConfig(presets.ZoneCount(), model.RGB{G: 200})
	require.NoError(t, presets.Save("forest", cfg))

	require.NoError(t, presets.Apply("forest"))

	env, ok := link.lastZoned()
	require.True(t, ok)
	assert.Equal(t, model.CategoryLegionGo, env.Category)
	require.NotNil(t, env.Zoned)
	assert.Equal(t, cfg, env.Zoned.Config)
	assert.Equal(t, "forest", resolver.ActivePreset(model.CategoryLegionGo))
	assert.Equal(t, model.ModeCustomRgb, resolver.Effective().Mode)
	assert.Contains(t, hub.eventTypes(), "preset.applied")
}

func TestPresetApplyUnknownFailsFast(t *testing.T) {
	presets, resolver, _, _, link := newTestPresets(t, model.CategoryMSIClaw)
	require.Error(t, presets.Apply("ghost"))
	_, pushed := link.lastZoned()
	assert.False(t, pushed)
	assert.Equal(t, "", resolver.ActivePreset(model.CategoryMSIClaw))
}

func TestPresetSaveOverActiveReapplies(t *testing.T) {
	presets, _, _, _, link := newTestPresets(t, model.CategoryMSIClaw)
	require.NoError(t, presets.Save("flame", solidConfig(presets.ZoneCount(), model.RGB{R: 255})))
	require.NoError(t, presets.Apply("flame"))

	updated := solidConfig(presets.ZoneCount(), model.RGB{B: 255})
	require.NoError(t, presets.Save("flame", updated))

	env, ok := link.lastZoned()
	require.True(t, ok)
	assert.Equal(t, updated, env.Zoned.Config)
}

func TestPresetDeleteActiveFallsBack(t *testing.T) {
	presets, resolver, _, _, _ := newTestPresets(t, model.CategoryMSIClaw)
	require.NoError(t, presets.Save("flame", solidConfig(presets.ZoneCount(), model.RGB{R: 255})))
	require.NoError(t, presets.Apply("flame"))

	require.NoError(t, presets.Delete("flame"))
	assert.Equal(t, "", resolver.ActivePreset(model.CategoryMSIClaw))
	assert.Equal(t, model.DefaultFallbackMode, resolver.Effective().Mode)
	_, ok := presets.Get("flame")
	assert.False(t, ok)
}

func TestPresetDeleteInactiveKeepsMode(t *testing.T) {
	presets, resolver, _, _, _ := newTestPresets(t, model.CategoryMSIClaw)
	require.NoError(t, presets.Save("flame", solidConfig(presets.ZoneCount(), model.RGB{R: 255})))
	require.NoError(t, presets.Save("ocean", solidConfig(presets.ZoneCount(), model.RGB{B: 255})))
	require.NoError(t, presets.Apply("ocean"))

	require.NoError(t, presets.Delete("flame"))
	assert.Equal(t, "ocean", resolver.ActivePreset(model.CategoryMSIClaw))
	assert.Equal(t, model.ModeCustomRgb, resolver.Effective().Mode)
}

func TestPresetDeleteNotFound(t *testing.T) {
	presets, _, store, _, _ := newTestPresets(t, model.CategoryMSIClaw)
	assert.Error(t, presets.Delete("ghost"))
	assert.Zero(t, store.deleteCount, "unknown name never reaches persistence")
}

func TestSharedResolverKeepsCategoriesApart(t *testing.T) {
	// One resolver serves every category's preset store, the same shape the
	// composition root wires.
	store := newFakeStore()
	hub := &captureHub{}
	link := &captureLink{}
	resolver := NewSettingsResolver(store, hub, link, model.CategoryMSIClaw, time.Millisecond)
	claw := NewPresetStore(model.CategoryMSIClaw, store, hub, link, resolver)
	claw.Init()
	legion := NewPresetStore(model.CategoryLegionGo, store, hub, link, resolver)
	legion.Init()

	require.NoError(t, legion.Save("forest", solidConfig(legion.ZoneCount(), model.RGB{G: 200})))
	require.NoError(t, legion.Apply("forest"))

	saved := store.GetSettings().ActivePreset
	assert.Equal(t, "forest", saved[model.CategoryLegionGo])
	assert.Equal(t, "", saved[model.CategoryMSIClaw], "applying on legion-go must not mark msi-claw")
	assert.Equal(t, "forest", resolver.ActivePreset(model.CategoryLegionGo))
	assert.Equal(t, "", resolver.ActivePreset(model.CategoryMSIClaw))

	require.NoError(t, claw.Save("flame", solidConfig(claw.ZoneCount(), model.RGB{R: 255})))
	require.NoError(t, claw.Apply("flame"))
	require.NoError(t, legion.Delete("forest"))

	assert.Equal(t, "", resolver.ActivePreset(model.CategoryLegionGo))
	assert.Equal(t, "flame", resolver.ActivePreset(model.CategoryMSIClaw), "deleting legion-go's active preset must not clear msi-claw's")
}

func TestPresetInitLoadsPersisted(t *testing.T) {
	store := newFakeStore()
	hub := &captureHub{}
	link := &captureLink{}
	cfg := solidConfig(4, model.RGB{R: 1})
	require.NoError(t, store.SavePreset(model.CategoryROGAlly, "seed", cfg))

	resolver := NewSettingsResolver(store, hub, link, model.CategoryROGAlly, time.Millisecond)
	presets := NewPresetStore(model.CategoryROGAlly, store, hub, link, resolver)
	presets.Init()

	got, ok := presets.Get("seed")
	require.True(t, ok)
	assert.Equal(t, cfg, got)
	assert.Contains(t, hub.eventTypes(), "presets.loaded")
}
