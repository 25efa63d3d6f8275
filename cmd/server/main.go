package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zonelight-agent/internal/api"
	"zonelight-agent/internal/config"
	"zonelight-agent/internal/model"
	"zonelight-agent/internal/service"
	"zonelight-agent/internal/storage"
	"zonelight-agent/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := storage.NewStore(cfg.DataPath)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()
	hardwareHub := ws.NewHardwareHub()

	resolver := service.NewSettingsResolver(store, hub, hardwareHub, defaultCategory(cfg.DefaultDevice), time.Duration(cfg.ApplyDebounceMs)*time.Millisecond)

	presets := map[model.DeviceCategory]*service.PresetStore{}
	editors := map[model.DeviceCategory]*service.TimelineEditor{}
	for category := range model.SupportedCategories {
		p := service.NewPresetStore(category, store, hub, hardwareHub, resolver)
		p.Init()
		presets[category] = p
		editors[category] = service.NewTimelineEditor(category, p, hub, hardwareHub)
	}

	player := service.NewPlayer(hub, hardwareHub, time.Duration(cfg.PlaybackTickMs)*time.Millisecond)

	router := api.NewRouter(cfg, store, hub, hardwareHub, resolver, presets, editors, player)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	player.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func defaultCategory(device string) model.DeviceCategory {
	category := model.DeviceCategory(device)
	if _, ok := model.SupportedCategories[category]; ok {
		return category
	}
	log.Printf("unknown default device %q, using %s", device, model.CategoryMSIClaw)
	return model.CategoryMSIClaw
}
