package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr         string
	DataPath           string
	DefaultDevice      string
	ApplyDebounceMs    int
	PlaybackTickMs     int
	PreviewRingSizePx  int
	MaxUploadSizeBytes int64
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		DataPath:           getEnv("DATA_PATH", "./data/state.json"),
		DefaultDevice:      getEnv("DEFAULT_DEVICE", "msi-claw"),
		ApplyDebounceMs:    getEnvInt("APPLY_DEBOUNCE_MS", 300),
		PlaybackTickMs:     getEnvInt("PLAYBACK_TICK_MS", 33),
		PreviewRingSizePx:  getEnvInt("PREVIEW_RING_SIZE_PX", 256),
		MaxUploadSizeBytes: getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 1024*1024),
	}

	if cfg.ApplyDebounceMs <= 0 {
		return Config{}, errors.New("apply debounce ms must be > 0")
	}
	if cfg.PlaybackTickMs <= 0 {
		return Config{}, errors.New("playback tick ms must be > 0")
	}
	if cfg.PreviewRingSizePx < 32 {
		return Config{}, errors.New("preview ring size must be >= 32")
	}
	if cfg.MaxUploadSizeBytes <= 0 {
		return Config{}, errors.New("max upload size must be > 0")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
