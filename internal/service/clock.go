package service

import (
	"context"
	"sync"
	"time"

	"zonelight-agent/internal/model"
)

const (
	// MinFrameDuration is how long one keyframe lasts at the fastest speed,
	// MaxFrameDuration at the slowest.
	MinFrameDuration = 150 * time.Millisecond
	MaxFrameDuration = 3500 * time.Millisecond
	MaxSpeed         = 20
)

// FrameDuration linearly interpolates the per-keyframe duration from the
// speed slider: speed 0 is slowest, MaxSpeed fastest.
func FrameDuration(speed int) time.Duration {
	speed = clampInt(speed, 0, MaxSpeed)
	span := MaxFrameDuration - MinFrameDuration
	return MaxFrameDuration - span*time.Duration(speed)/MaxSpeed
}

// CycleDuration is the length of one full loop through the timeline.
func CycleDuration(speed, keyframes int) time.Duration {
	if keyframes < 1 {
		keyframes = 1
	}
	return FrameDuration(speed) * time.Duration(keyframes)
}

// Progress maps elapsed wall time onto the repeating [0,1) animation
// phase.
func Progress(elapsed time.Duration, cycle time.Duration) float64 {
	if cycle <= 0 {
		return 0
	}
	e := elapsed % cycle
	if e < 0 {
		e += cycle
	}
	return float64(e) / float64(cycle)
}

// FrameAt computes the interpolated frame for one phase value: a per-zone
// linear RGB blend between the bracketing keyframes. A single-keyframe
// timeline always yields that frame.
func FrameAt(cfg model.CustomRgbConfig, progress float64) model.Keyframe {
	k := len(cfg.Keyframes)
	if k == 0 {
		return nil
	}
	if k == 1 {
		return cfg.Keyframes[0].Clone()
	}
	progress = progress - float64(int(progress))
	if progress < 0 {
		progress += 1
	}
	total := progress * float64(k)
	idx := int(total)
	blend := total - float64(idx)
	a := cfg.Keyframes[idx%k]
	b := cfg.Keyframes[(idx+1)%k]
	out := make(model.Keyframe, len(a))
	for i := range a {
		out[i] = blendRGB(a[i], b[i], blend)
	}
	return out
}

// Player drives host-side playback: a tick loop that recomputes the
// interpolated frame, pushes it to the hardware client for the playing
// category, and broadcasts it. Stopping cancels the pending tick
// immediately; no frame is emitted after Stop or Pause returns a cancelled
// loop.
type Player struct {
	hub    Broadcaster
	device DeviceLink
	tick   time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	last    model.Keyframe
	playing bool
}

func NewPlayer(hub Broadcaster, device DeviceLink, tick time.Duration) *Player {
	return &Player{hub: hub, device: device, tick: tick}
}

// Play starts (or restarts) playback of the given timeline. Brightness is
// applied after interpolation, never before.
func (p *Player) Play(category model.DeviceCategory, cfg model.CustomRgbConfig) {
	cfg = cfg.Clone()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.playing = true
	p.mu.Unlock()

	go p.run(ctx, category, cfg)
}

func (p *Player) run(ctx context.Context, category model.DeviceCategory, cfg model.CustomRgbConfig) {
	start := time.Now()
	cycle := CycleDuration(cfg.Speed, len(cfg.Keyframes))
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frame := FrameAt(cfg, Progress(now.Sub(start), cycle))
			frame = ApplyBrightness(frame, cfg.Brightness)

			p.mu.Lock()
			if ctx.Err() != nil {
				p.mu.Unlock()
				return
			}
			p.last = frame
			p.mu.Unlock()

			// Brightness is already folded into the frame; 100 here keeps
			// the hardware from scaling it a second time.
			p.device.PushEnvelope(newZonedEnvelope(category, model.CustomRgbConfig{
				Speed:      cfg.Speed,
				Brightness: 100,
				Keyframes:  []model.Keyframe{frame},
			}))
			p.hub.BroadcastEvent(model.NewEvent("playback.frame", map[string]interface{}{
				"category": category,
				"frame":    frame,
			}))
		}
	}
}

// Pause freezes playback on the most recently computed frame.
func (p *Player) Pause() model.Keyframe {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.playing = false
	return p.last.Clone()
}

// Stop cancels playback and discards the frozen frame.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.playing = false
	p.last = nil
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// LastFrame returns the most recent interpolated frame, nil when nothing
// has played yet.
func (p *Player) LastFrame() model.Keyframe {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last.Clone()
}
