package service

import (
	"testing"

	"zonelight-agent/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T, category model.DeviceCategory) (*TimelineEditor, *PresetStore, *SettingsResolver, *fakeStore, *captureLink) {
	t.Helper()
	presets, resolver, store, hub, link := newTestPresets(t, category)
	editor := NewTimelineEditor(category, presets, hub, link)
	return editor, presets, resolver, store, link
}

func TestStartEditingFreshTimeline(t *testing.T) {
	editor, presets, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))

	cfg, ok := editor.Editing()
	require.True(t, ok)
	require.Len(t, cfg.Keyframes, 1)
	assert.Len(t, cfg.Keyframes[0], presets.ZoneCount())
	assert.Equal(t, model.BlackKeyframe(presets.ZoneCount()), cfg.Keyframes[0])
	assert.Equal(t, 10, cfg.Speed)
	assert.Equal(t, 100, cfg.Brightness)
}

func TestStartEditingFromPresetIsACopy(t *testing.T) {
	editor, presets, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, presets.Save("flame", solidConfig(presets.ZoneCount(), model.RGB{R: 255})))
	require.NoError(t, editor.StartEditing("flame"))

	require.NoError(t, editor.UpdateZoneColor(0, 0, model.RGB{B: 255}))
	stored, _ := presets.Get("flame")
	assert.Equal(t, model.RGB{R: 255}, stored.Keyframes[0][0], "editing must not alias the stored preset")
}

func TestStartEditingTwiceFails(t *testing.T) {
	editor, _, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	assert.Error(t, editor.StartEditing(""))
	editor.CancelEditing()
	assert.NoError(t, editor.StartEditing(""))
}

func TestStartEditingUnknownPresetFallsBackToFresh(t *testing.T) {
	editor, presets, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing("ghost"))
	cfg, ok := editor.Editing()
	require.True(t, ok)
	assert.Equal(t, model.BlackKeyframe(presets.ZoneCount()), cfg.Keyframes[0])
}

func TestUpdateZoneColorBounds(t *testing.T) {
	editor, presets, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))

	assert.Error(t, editor.UpdateZoneColor(1, 0, model.RGB{}))
	assert.Error(t, editor.UpdateZoneColor(0, presets.ZoneCount(), model.RGB{}))
	assert.Error(t, editor.UpdateZoneColor(-1, 0, model.RGB{}))

	require.NoError(t, editor.UpdateZoneColor(0, 3, model.RGB{G: 77}))
	cfg, _ := editor.Editing()
	assert.Equal(t, model.RGB{G: 77}, cfg.Keyframes[0][3])
}

func TestAddKeyframeCapAndCopy(t *testing.T) {
	editor, presets, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	require.NoError(t, editor.UpdateZoneColor(0, 0, model.RGB{R: 9}))

	ok, err := editor.AddKeyframe(0)
	require.NoError(t, err)
	require.True(t, ok)
	cfg, _ := editor.Editing()
	assert.Equal(t, model.RGB{R: 9}, cfg.Keyframes[1][0], "copied from the source frame")

	ok, err = editor.AddKeyframe(-1)
	require.NoError(t, err)
	require.True(t, ok)
	cfg, _ = editor.Editing()
	assert.Equal(t, model.RGB{}, cfg.Keyframes[2][0], "negative source means all black")

	for {
		cfg, _ = editor.Editing()
		if len(cfg.Keyframes) == presets.MaxKeyframes() {
			break
		}
		ok, err = editor.AddKeyframe(-1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err = editor.AddKeyframe(-1)
	require.NoError(t, err)
	assert.False(t, ok, "cap reached reports false, not an error")
}

func TestDeleteKeyframeFloor(t *testing.T) {
	editor, _, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	_, err := editor.AddKeyframe(-1)
	require.NoError(t, err)

	ok, err := editor.DeleteKeyframe(1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = editor.DeleteKeyframe(0)
	require.NoError(t, err)
	assert.False(t, ok, "last frame never deletes")

	_, err = editor.DeleteKeyframe(5)
	assert.Error(t, err)
}

func TestRotateCopyAppendsTransformed(t *testing.T) {
	editor, _, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	require.NoError(t, editor.UpdateZoneColor(0, 0, model.RGB{R: 200}))

	ok, err := editor.RotateCopy(0, true)
	require.NoError(t, err)
	require.True(t, ok)

	cfg, _ := editor.Editing()
	require.Len(t, cfg.Keyframes, 2)
	assert.Equal(t, model.RGB{R: 200}, cfg.Keyframes[0][0], "source frame untouched")
	assert.Equal(t, model.RGB{}, cfg.Keyframes[1][0])
	assert.Equal(t, model.RGB{R: 200}, cfg.Keyframes[1][1], "clockwise moves zone 0 to zone 1")
}

func TestSpeedBrightnessValidation(t *testing.T) {
	editor, _, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))

	assert.Error(t, editor.UpdateSpeed(MaxSpeed+1))
	assert.Error(t, editor.UpdateBrightness(101))
	require.NoError(t, editor.UpdateSpeed(0))
	require.NoError(t, editor.UpdateBrightness(30))
	cfg, _ := editor.Editing()
	assert.Equal(t, 0, cfg.Speed)
	assert.Equal(t, 30, cfg.Brightness)
}

func TestSaveCurrentNewName(t *testing.T) {
	editor, presets, _, _, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	require.NoError(t, editor.UpdateZoneColor(0, 0, model.RGB{R: 1}))
	require.NoError(t, editor.SaveCurrent("mine"))

	_, stillEditing := editor.Editing()
	assert.False(t, stillEditing, "save closes the session")
	got, ok := presets.Get("mine")
	require.True(t, ok)
	assert.Equal(t, model.RGB{R: 1}, got.Keyframes[0][0])
}

func TestSaveCurrentRenameOfActive(t *testing.T) {
	editor, presets, resolver, _, link := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, presets.Save("old", solidConfig(presets.ZoneCount(), model.RGB{R: 255})))
	require.NoError(t, presets.Apply("old"))

	require.NoError(t, editor.StartEditing("old"))
	require.NoError(t, editor.UpdateZoneColor(0, 0, model.RGB{B: 255}))
	require.NoError(t, editor.SaveCurrent("new"))

	_, oldExists := presets.Get("old")
	assert.False(t, oldExists, "rename removes the old entry")
	_, newExists := presets.Get("new")
	assert.True(t, newExists)
	assert.Equal(t, "new", resolver.ActivePreset(model.CategoryMSIClaw), "pointer follows the rename")

	env, ok := link.lastZoned()
	require.True(t, ok)
	assert.Equal(t, model.RGB{B: 255}, env.Zoned.Config.Keyframes[0][0])
}

func TestSaveCurrentRenameRollsBackOnDeleteFailure(t *testing.T) {
	editor, presets, resolver, store, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, presets.Save("old", solidConfig(presets.ZoneCount(), model.RGB{R: 255})))
	require.NoError(t, presets.Apply("old"))
	require.NoError(t, editor.StartEditing("old"))

	store.failDelete = true
	err := editor.SaveCurrent("new")
	require.Error(t, err)

	_, oldExists := presets.Get("old")
	assert.True(t, oldExists, "failed rename keeps the old entry")
	_, newExists := presets.Get("new")
	assert.False(t, newExists, "the half-renamed entry must not survive in memory even when the store is down")
	assert.Equal(t, "old", resolver.ActivePreset(model.CategoryMSIClaw), "pointer restored")
}

func TestSaveCurrentFailureKeepsSession(t *testing.T) {
	editor, _, _, store, _ := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	store.failSave = true
	require.Error(t, editor.SaveCurrent("mine"))
	_, stillEditing := editor.Editing()
	assert.True(t, stillEditing, "failed save keeps the session open")
}

func TestPreviewBypassesPresetDict(t *testing.T) {
	editor, presets, _, _, link := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	require.NoError(t, editor.UpdateZoneColor(0, 2, model.RGB{G: 128}))
	require.NoError(t, editor.PreviewCurrent())

	env, ok := link.lastZoned()
	require.True(t, ok)
	assert.Equal(t, model.RGB{G: 128}, env.Zoned.Config.Keyframes[0][2])
	assert.Empty(t, presets.Names(), "preview persists nothing")
}

func TestPreviewFrameSendsSingleFrameSlice(t *testing.T) {
	editor, _, _, _, link := newTestEditor(t, model.CategoryMSIClaw)
	require.NoError(t, editor.StartEditing(""))
	_, err := editor.AddKeyframe(-1)
	require.NoError(t, err)
	require.NoError(t, editor.UpdateZoneColor(1, 0, model.RGB{R: 42}))
	require.NoError(t, editor.UpdateBrightness(70))

	require.NoError(t, editor.PreviewFrame(1))
	env, ok := link.lastZoned()
	require.True(t, ok)
	require.Len(t, env.Zoned.Config.Keyframes, 1)
	assert.Equal(t, model.RGB{R: 42}, env.Zoned.Config.Keyframes[0][0])
	assert.Equal(t, 70, env.Zoned.Config.Brightness)

	assert.Error(t, editor.PreviewFrame(5))
}
