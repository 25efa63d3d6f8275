package api

import (
	"net/http"

	"zonelight-agent/internal/config"
	"zonelight-agent/internal/model"
	"zonelight-agent/internal/service"
	"zonelight-agent/internal/storage"
	"zonelight-agent/internal/ws"

	"github.com/gorilla/websocket"
)

func NewRouter(
	cfg config.Config,
	store *storage.Store,
	hub *ws.Hub,
	hardwareHub *ws.HardwareHub,
	resolver *service.SettingsResolver,
	presets map[model.DeviceCategory]*service.PresetStore,
	editors map[model.DeviceCategory]*service.TimelineEditor,
	player *service.Player,
) http.Handler {
	h := &Handler{
		cfg:         cfg,
		store:       store,
		hub:         hub,
		hardwareHub: hardwareHub,
		resolver:    resolver,
		presets:     presets,
		editors:     editors,
		player:      player,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/v1/ws", h.WebSocket)
	mux.HandleFunc("/v1/hardware/ws", h.HardwareWebSocket)

	mux.HandleFunc("/v1/capabilities/device", h.DeviceCapabilities)
	mux.HandleFunc("/v1/capabilities/modes", h.ModeCapabilities)
	mux.HandleFunc("/v1/layout", h.Layout)
	mux.HandleFunc("/v1/layout/hit", h.LayoutHitTest)

	mux.HandleFunc("/v1/settings", h.GetSettings)
	mux.HandleFunc("/v1/settings/set", h.SetSetting)
	mux.HandleFunc("/v1/settings/app", h.SetActiveApp)
	mux.HandleFunc("/v1/settings/app/override", h.CreateAppOverride)
	mux.HandleFunc("/v1/settings/app/ac", h.EnableACOverride)
	mux.HandleFunc("/v1/settings/power", h.SetPowerState)

	mux.HandleFunc("/v1/presets", h.ListPresets)
	mux.HandleFunc("/v1/presets/save", h.SavePreset)
	mux.HandleFunc("/v1/presets/delete", h.DeletePreset)
	mux.HandleFunc("/v1/presets/apply", h.ApplyPreset)

	mux.HandleFunc("/v1/timeline/start", h.TimelineStart)
	mux.HandleFunc("/v1/timeline/current", h.TimelineCurrent)
	mux.HandleFunc("/v1/timeline/zone", h.TimelineZone)
	mux.HandleFunc("/v1/timeline/frame/add", h.TimelineAddFrame)
	mux.HandleFunc("/v1/timeline/frame/delete", h.TimelineDeleteFrame)
	mux.HandleFunc("/v1/timeline/frame/rotate", h.TimelineRotateFrame)
	mux.HandleFunc("/v1/timeline/speed", h.TimelineSpeed)
	mux.HandleFunc("/v1/timeline/brightness", h.TimelineBrightness)
	mux.HandleFunc("/v1/timeline/save", h.TimelineSave)
	mux.HandleFunc("/v1/timeline/cancel", h.TimelineCancel)
	mux.HandleFunc("/v1/timeline/preview", h.TimelinePreview)
	mux.HandleFunc("/v1/timeline/preview-frame", h.TimelinePreviewFrame)

	mux.HandleFunc("/v1/playback/start", h.PlaybackStart)
	mux.HandleFunc("/v1/playback/pause", h.PlaybackPause)
	mux.HandleFunc("/v1/playback/stop", h.PlaybackStop)

	mux.HandleFunc("/v1/preview/ring.png", h.PreviewRing)

	return limitBody(cfg.MaxUploadSizeBytes, mux)
}

func limitBody(maxSize int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		next.ServeHTTP(w, r)
	})
}
