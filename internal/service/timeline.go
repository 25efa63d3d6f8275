package service

import (
	"fmt"
	"log"
	"sync"

	"zonelight-agent/internal/model"
)

// TimelineEditor holds the single "currently editing" timeline for one
// device category. The slot always owns an independent copy; it never
// aliases a stored preset. Capacity limits (too many keyframes, deleting
// the last one) are reported as a false return, not an error, since the
// panel disables those controls at the bound; bad indices are errors.
type TimelineEditor struct {
	category model.DeviceCategory
	layout   ZoneLayoutConfig
	presets  *PresetStore
	hub      Broadcaster
	device   DeviceLink

	mu      sync.Mutex
	editing *model.CustomRgbConfig
	source  string
}

func NewTimelineEditor(category model.DeviceCategory, presets *PresetStore, hub Broadcaster, device DeviceLink) *TimelineEditor {
	return &TimelineEditor{
		category: category,
		layout:   LayoutForCategory(category),
		presets:  presets,
		hub:      hub,
		device:   device,
	}
}

// StartEditing opens the editing slot, either with a deep copy of an
// existing preset or with the fresh default (one all-black keyframe).
// Only one edit session may run at a time.
func (e *TimelineEditor) StartEditing(fromPreset string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing != nil {
		return fmt.Errorf("already editing %q timeline", e.category)
	}
	if fromPreset != "" {
		if cfg, ok := e.presets.Get(fromPreset); ok {
			e.editing = &cfg
			e.source = fromPreset
			return nil
		}
	}
	cfg := model.NewCustomRgbConfig(e.layout.ZoneCount)
	e.editing = &cfg
	e.source = ""
	return nil
}

func (e *TimelineEditor) Editing() (model.CustomRgbConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return model.CustomRgbConfig{}, false
	}
	return e.editing.Clone(), true
}

func (e *TimelineEditor) UpdateZoneColor(frameIdx, zoneIdx int, c model.RGB) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return fmt.Errorf("no timeline being edited")
	}
	if frameIdx < 0 || frameIdx >= len(e.editing.Keyframes) {
		return fmt.Errorf("frame index %d out of range", frameIdx)
	}
	if zoneIdx < 0 || zoneIdx >= e.layout.ZoneCount {
		return fmt.Errorf("zone index %d out of range", zoneIdx)
	}
	e.editing.Keyframes[frameIdx][zoneIdx] = c
	return nil
}

// AddKeyframe appends a copy of frame copyFrom, or an all-black frame when
// copyFrom is negative or invalid. Returns false once the device's
// keyframe cap is reached.
func (e *TimelineEditor) AddKeyframe(copyFrom int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return false, fmt.Errorf("no timeline being edited")
	}
	if len(e.editing.Keyframes) >= e.presets.MaxKeyframes() {
		return false, nil
	}
	frame := model.BlackKeyframe(e.layout.ZoneCount)
	if copyFrom >= 0 && copyFrom < len(e.editing.Keyframes) {
		frame = e.editing.Keyframes[copyFrom].Clone()
	}
	e.editing.Keyframes = append(e.editing.Keyframes, frame)
	return true, nil
}

// DeleteKeyframe removes one frame; the timeline never goes empty, so
// deleting the last remaining frame returns false.
func (e *TimelineEditor) DeleteKeyframe(frameIdx int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return false, fmt.Errorf("no timeline being edited")
	}
	if frameIdx < 0 || frameIdx >= len(e.editing.Keyframes) {
		return false, fmt.Errorf("frame index %d out of range", frameIdx)
	}
	if len(e.editing.Keyframes) <= 1 {
		return false, nil
	}
	e.editing.Keyframes = append(e.editing.Keyframes[:frameIdx], e.editing.Keyframes[frameIdx+1:]...)
	return true, nil
}

// RotateCopy appends a rotated copy of the given frame as a new keyframe.
// Copy-and-transform, never an in-place edit; the keyframe cap applies.
func (e *TimelineEditor) RotateCopy(frameIdx int, clockwise bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return false, fmt.Errorf("no timeline being edited")
	}
	if frameIdx < 0 || frameIdx >= len(e.editing.Keyframes) {
		return false, fmt.Errorf("frame index %d out of range", frameIdx)
	}
	if len(e.editing.Keyframes) >= e.presets.MaxKeyframes() {
		return false, nil
	}
	rotated, err := Rotate(e.editing.Keyframes[frameIdx], clockwise, e.layout)
	if err != nil {
		return false, err
	}
	e.editing.Keyframes = append(e.editing.Keyframes, rotated)
	return true, nil
}

func (e *TimelineEditor) UpdateSpeed(v int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return fmt.Errorf("no timeline being edited")
	}
	if v < 0 || v > MaxSpeed {
		return fmt.Errorf("speed %d out of range [0,%d]", v, MaxSpeed)
	}
	e.editing.Speed = v
	return nil
}

func (e *TimelineEditor) UpdateBrightness(v int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return fmt.Errorf("no timeline being edited")
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("brightness %d out of range [0,100]", v)
	}
	e.editing.Brightness = v
	return nil
}

// CancelEditing discards the editing slot without persisting anything.
func (e *TimelineEditor) CancelEditing() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = nil
	e.source = ""
}

// SaveCurrent promotes the editing timeline to a named preset. Saving
// under a different name than the session started from is a rename: the
// old entry is deleted only after the new one saved, and a failed delete
// rolls the new entry back so no partial rename survives. If the saved or
// renamed preset is the active one, it is reapplied and the active-preset
// pointer follows the new name.
func (e *TimelineEditor) SaveCurrent(name string) error {
	if name == "" {
		return fmt.Errorf("preset name is empty")
	}
	e.mu.Lock()
	if e.editing == nil {
		e.mu.Unlock()
		return fmt.Errorf("no timeline being edited")
	}
	cfg := e.editing.Clone()
	source := e.source
	e.mu.Unlock()

	active := e.presets.resolver.ActivePreset(e.category)
	rename := source != "" && source != name
	wasActive := active == source || active == name

	if err := e.presets.Save(name, cfg); err != nil {
		return err
	}
	if rename {
		if wasActive {
			if err := e.presets.resolver.SetActivePreset(e.category, name); err != nil {
				e.rollbackRename(name, source, wasActive)
				return err
			}
		}
		if err := e.presets.deleteRaw(source); err != nil {
			e.rollbackRename(name, source, wasActive)
			return err
		}
	}
	// The non-rename active case is reapplied inside presets.Save; the
	// rename path pushes here once the pointer follows the new name.
	if rename && wasActive {
		e.device.PushEnvelope(newZonedEnvelope(e.category, cfg.Clone()))
	}

	e.mu.Lock()
	e.editing = nil
	e.source = ""
	e.mu.Unlock()

	e.hub.BroadcastEvent(model.NewEvent("timeline.saved", map[string]interface{}{
		"category": e.category, "name": name, "renamed_from": source,
	}))
	return nil
}

// rollbackRename undoes the first half of a failed rename. When the
// persistence layer is down the new entry cannot be deleted from disk; the
// in-memory dict is cleaned up anyway and the orphaned copy logged.
func (e *TimelineEditor) rollbackRename(name, source string, wasActive bool) {
	if err := e.presets.deleteRaw(name); err != nil {
		e.presets.forgetLocal(name)
		log.Printf("rename %s/%q: persisted copy %q orphaned: %v", e.category, source, name, err)
	}
	if wasActive {
		_ = e.presets.resolver.SetActivePreset(e.category, source)
	}
}

// PreviewCurrent pushes the in-progress timeline straight to the device,
// bypassing the preset dict, for live feedback while editing.
func (e *TimelineEditor) PreviewCurrent() error {
	e.mu.Lock()
	if e.editing == nil {
		e.mu.Unlock()
		return fmt.Errorf("no timeline being edited")
	}
	cfg := e.editing.Clone()
	e.mu.Unlock()
	e.device.PushEnvelope(newZonedEnvelope(e.category, cfg))
	return nil
}

// PreviewFrame previews a single keyframe, reusing the editing timeline's
// speed and brightness.
func (e *TimelineEditor) PreviewFrame(frameIdx int) error {
	e.mu.Lock()
	if e.editing == nil {
		e.mu.Unlock()
		return fmt.Errorf("no timeline being edited")
	}
	if frameIdx < 0 || frameIdx >= len(e.editing.Keyframes) {
		e.mu.Unlock()
		return fmt.Errorf("frame index %d out of range", frameIdx)
	}
	slice := model.CustomRgbConfig{
		Speed:      e.editing.Speed,
		Brightness: e.editing.Brightness,
		Keyframes:  []model.Keyframe{e.editing.Keyframes[frameIdx].Clone()},
	}
	e.mu.Unlock()
	e.device.PushEnvelope(newZonedEnvelope(e.category, slice))
	return nil
}
