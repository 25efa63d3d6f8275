package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"zonelight-agent/internal/config"
	"zonelight-agent/internal/model"
	"zonelight-agent/internal/service"
	"zonelight-agent/internal/storage"
	"zonelight-agent/internal/ws"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Handler struct {
	cfg         config.Config
	store       *storage.Store
	hub         *ws.Hub
	hardwareHub *ws.HardwareHub
	resolver    *service.SettingsResolver
	presets     map[model.DeviceCategory]*service.PresetStore
	editors     map[model.DeviceCategory]*service.TimelineEditor
	player      *service.Player
	upgrader    websocket.Upgrader
}

type apiError struct {
	Error string `json:"error"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	client := ws.NewClient(h.hub, conn)
	h.hub.BroadcastEvent(model.NewEvent("ws.client_connected", map[string]string{"id": uuid.NewString()}))
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) HardwareWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	category, err := h.categoryFrom(r.URL.Query().Get("device"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hardware ws upgrade failed: remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	client := h.hardwareHub.Register(category, conn)
	go client.WritePump()
	go client.ReadPump()
	log.Printf("hardware client connected for %s", category)
}

// categoryFrom resolves the device query/body parameter, defaulting to the
// configured device.
func (h *Handler) categoryFrom(raw string) (model.DeviceCategory, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		v = h.cfg.DefaultDevice
	}
	category := model.DeviceCategory(v)
	if _, ok := model.SupportedCategories[category]; !ok {
		return "", fmt.Errorf("unsupported device %q", v)
	}
	return category, nil
}

func (h *Handler) presetsFor(raw string) (*service.PresetStore, error) {
	category, err := h.categoryFrom(raw)
	if err != nil {
		return nil, err
	}
	return h.presets[category], nil
}

func (h *Handler) editorFor(raw string) (*service.TimelineEditor, error) {
	category, err := h.categoryFrom(raw)
	if err != nil {
		return nil, err
	}
	return h.editors[category], nil
}

func (h *Handler) DeviceCapabilities(w http.ResponseWriter, r *http.Request) {
	category, err := h.categoryFrom(r.URL.Query().Get("device"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	caps := service.DeviceCapabilitiesFor(category)
	caps.CustomRgbSupported = caps.CustomRgbSupported || h.hardwareHub.Connected(category)
	writeJSON(w, http.StatusOK, caps)
}

func (h *Handler) ModeCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, service.ModeCapabilities())
}

func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	category, err := h.categoryFrom(r.URL.Query().Get("device"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	layout := service.LayoutForCategory(category)
	size := float64(atoiDefault(r.URL.Query().Get("size"), h.cfg.PreviewRingSizePx))

	type zonePos struct {
		Index int     `json:"index"`
		Label string  `json:"label"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	}
	positions := make([]zonePos, 0, layout.ZoneCount)
	for _, z := range layout.Zones {
		x, y, err := service.PositionOf(z.Index, layout, size)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		positions = append(positions, zonePos{Index: z.Index, Label: z.Label, X: x, Y: y})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"layout":    layout,
		"positions": positions,
	})
}

func (h *Handler) LayoutHitTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Device string  `json:"device"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Size   float64 `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	category, err := h.categoryFrom(req.Device)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if req.Size <= 0 {
		req.Size = float64(h.cfg.PreviewRingSizePx)
	}
	layout := service.LayoutForCategory(category)
	zone, ok := service.HitTest(req.X, req.Y, layout, req.Size, service.DefaultHitRadius)
	writeJSON(w, http.StatusOK, map[string]interface{}{"hit": ok, "zone": zone})
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	category, err := h.categoryFrom(r.URL.Query().Get("device"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	effective := h.resolver.Effective()
	primary, secondary := h.resolver.EffectiveRGB()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"effective":     effective,
		"primary_rgb":   primary,
		"secondary_rgb": secondary,
		"active_app":    h.resolver.ActiveApp(),
		"power_state":   h.resolver.PowerState(),
		"active_preset": h.resolver.ActivePreset(category),
		"settings":      h.resolver.Settings(),
	})
}

func (h *Handler) SetSetting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Key   string      `json:"key"`
		Value interface{} `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := h.resolver.Set(req.Key, req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "effective": h.resolver.Effective()})
}

func (h *Handler) SetActiveApp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		AppID string `json:"app_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	h.resolver.SetActiveApp(req.AppID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "effective": h.resolver.Effective()})
}

func (h *Handler) CreateAppOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		AppID string `json:"app_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := h.resolver.CreateAppOverride(req.AppID); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) EnableACOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		AppID string `json:"app_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if req.AppID == "" {
		req.AppID = model.DefaultAppID
	}
	if err := h.resolver.EnableACOverride(req.AppID); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) SetPowerState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	state := model.PowerState(req.State)
	if state != model.PowerAC && state != model.PowerBattery {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown power state %q", req.State))
		return
	}
	h.resolver.SetPowerState(state)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "effective": h.resolver.Effective()})
}

func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	store, err := h.presetsFor(r.URL.Query().Get("device"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"presets": store.List(),
		"names":   store.Names(),
		"active":  h.resolver.ActivePreset(store.Category()),
	})
}

func (h *Handler) SavePreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Device string                `json:"device"`
		Name   string                `json:"name"`
		Config model.CustomRgbConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	store, err := h.presetsFor(req.Device)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := store.Save(req.Name, req.Config); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Device string `json:"device"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	store, err := h.presetsFor(req.Device)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := store.Delete(req.Name); err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Device string `json:"device"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	store, err := h.presetsFor(req.Device)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := store.Apply(req.Name); err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "active": req.Name})
}

type timelineRequest struct {
	Device    string     `json:"device"`
	From      string     `json:"from,omitempty"`
	Name      string     `json:"name,omitempty"`
	Frame     int        `json:"frame"`
	Zone      int        `json:"zone"`
	CopyFrom  *int       `json:"copy_from,omitempty"`
	Clockwise bool       `json:"clockwise"`
	Value     int        `json:"value"`
	Color     *model.RGB `json:"color,omitempty"`
}

func (h *Handler) timelineBody(w http.ResponseWriter, r *http.Request) (*service.TimelineEditor, timelineRequest, bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return nil, timelineRequest{}, false
	}
	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return nil, timelineRequest{}, false
	}
	editor, err := h.editorFor(req.Device)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return nil, timelineRequest{}, false
	}
	return editor, req, true
}

func (h *Handler) TimelineStart(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	if err := editor.StartEditing(req.From); err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	cfg, _ := editor.Editing()
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "timeline": cfg})
}

func (h *Handler) TimelineCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	editor, err := h.editorFor(r.URL.Query().Get("device"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	cfg, editing := editor.Editing()
	writeJSON(w, http.StatusOK, map[string]interface{}{"editing": editing, "timeline": cfg})
}

func (h *Handler) TimelineZone(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	if req.Color == nil {
		writeErr(w, http.StatusBadRequest, errors.New("color required"))
		return
	}
	if err := editor.UpdateZoneColor(req.Frame, req.Zone, *req.Color); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) TimelineAddFrame(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	copyFrom := -1
	if req.CopyFrom != nil {
		copyFrom = *req.CopyFrom
	}
	added, err := editor.AddKeyframe(copyFrom)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": added})
}

func (h *Handler) TimelineDeleteFrame(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	deleted, err := editor.DeleteKeyframe(req.Frame)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": deleted})
}

func (h *Handler) TimelineRotateFrame(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	added, err := editor.RotateCopy(req.Frame, req.Clockwise)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": added})
}

func (h *Handler) TimelineSpeed(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	if err := editor.UpdateSpeed(req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) TimelineBrightness(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	if err := editor.UpdateBrightness(req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) TimelineSave(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	if err := editor.SaveCurrent(req.Name); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "name": req.Name})
}

func (h *Handler) TimelineCancel(w http.ResponseWriter, r *http.Request) {
	editor, _, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	editor.CancelEditing()
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) TimelinePreview(w http.ResponseWriter, r *http.Request) {
	editor, _, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	if err := editor.PreviewCurrent(); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) TimelinePreviewFrame(w http.ResponseWriter, r *http.Request) {
	editor, req, ok := h.timelineBody(w, r)
	if !ok {
		return
	}
	if err := editor.PreviewFrame(req.Frame); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *Handler) PlaybackStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Device string `json:"device"`
		Preset string `json:"preset,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	category, err := h.categoryFrom(req.Device)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	var cfg model.CustomRgbConfig
	if req.Preset != "" {
		var found bool
		cfg, found = h.presets[category].Get(req.Preset)
		if !found {
			writeErr(w, http.StatusNotFound, fmt.Errorf("preset %q not found", req.Preset))
			return
		}
	} else {
		var editing bool
		cfg, editing = h.editors[category].Editing()
		if !editing {
			writeErr(w, http.StatusBadRequest, errors.New("nothing to play: no editing timeline and no preset named"))
			return
		}
	}
	h.player.Play(category, cfg)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "cycle_ms": service.CycleDuration(cfg.Speed, len(cfg.Keyframes)).Milliseconds()})
}

func (h *Handler) PlaybackPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	frame := h.player.Pause()
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "frame": frame})
}

func (h *Handler) PlaybackStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	h.player.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// PreviewRing renders one group's gradient ring for the frame currently
// being edited (falling back to the active preset's first frame).
func (h *Handler) PreviewRing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	category, err := h.categoryFrom(r.URL.Query().Get("device"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	layout := service.LayoutForCategory(category)
	group := r.URL.Query().Get("group")
	if group == "" {
		group = layout.Zones[0].Group
	}
	frameIdx := atoiDefault(r.URL.Query().Get("frame"), 0)
	size := atoiDefault(r.URL.Query().Get("size"), h.cfg.PreviewRingSizePx)

	var frame model.Keyframe
	if cfg, editing := h.editors[category].Editing(); editing && frameIdx < len(cfg.Keyframes) {
		frame = service.ApplyBrightness(cfg.Keyframes[frameIdx], cfg.Brightness)
	} else if active := h.resolver.ActivePreset(category); active != "" {
		if cfg, ok := h.presets[category].Get(active); ok && frameIdx < len(cfg.Keyframes) {
			frame = service.ApplyBrightness(cfg.Keyframes[frameIdx], cfg.Brightness)
		}
	}
	if frame == nil {
		frame = model.BlackKeyframe(layout.ZoneCount)
	}

	png, err := service.RenderRing(layout, group, frame, size)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func atoiDefault(v string, d int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return d
	}
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			return d
		}
		n = n*10 + int(ch-'0')
	}
	if n <= 0 {
		return d
	}
	return n
}
