package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"zonelight-agent/internal/model"

	"github.com/disintegration/imaging"
)

// InterpolateAlongRing samples the continuous gradient ring formed by
// discrete zone LEDs: the two zones angularly bracketing targetAngle are
// blended by angular fraction, wrapping across 0/360.
func InterpolateAlongRing(targetAngle float64, zoneAngles []float64, zoneColors []model.RGB) (model.RGB, error) {
	if len(zoneAngles) == 0 || len(zoneAngles) != len(zoneColors) {
		return model.RGB{}, errors.New("zone angles and colors must be non-empty and equal length")
	}
	if len(zoneAngles) == 1 {
		return zoneColors[0], nil
	}

	type ringZone struct {
		angle float64
		color model.RGB
	}
	zones := make([]ringZone, len(zoneAngles))
	for i := range zoneAngles {
		zones[i] = ringZone{angle: math.Mod(zoneAngles[i]+360, 360), color: zoneColors[i]}
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].angle < zones[j].angle })

	target := math.Mod(targetAngle+360, 360)

	// Find the last zone at or below the target; default wraps to the
	// highest-angle zone.
	lower := zones[len(zones)-1]
	upper := zones[0]
	for i, z := range zones {
		if z.angle <= target {
			lower = z
			upper = zones[(i+1)%len(zones)]
		}
	}

	span := math.Mod(upper.angle-lower.angle+360, 360)
	if span == 0 {
		return lower.color, nil
	}
	frac := math.Mod(target-lower.angle+360, 360) / span
	return blendRGB(lower.color, upper.color, frac), nil
}

// ApplyBrightness scales already-resolved RGB values by a percentage. This
// is an independent second stage, unrelated to the HSV value channel.
func ApplyBrightness(colors model.Keyframe, brightnessPct int) model.Keyframe {
	pct := clampFloat(float64(brightnessPct)/100, 0, 1)
	out := make(model.Keyframe, len(colors))
	for i, c := range colors {
		out[i] = model.RGB{
			R: uint8(math.Round(float64(c.R) * pct)),
			G: uint8(math.Round(float64(c.G) * pct)),
			B: uint8(math.Round(float64(c.B) * pct)),
		}
	}
	return out
}

// RingColors samples the gradient ring of one layout group at a fixed
// number of angles, starting at 0 degrees.
func RingColors(layout ZoneLayoutConfig, group string, frame model.Keyframe, samples int) ([]model.RGB, error) {
	if len(frame) != layout.ZoneCount {
		return nil, fmt.Errorf("frame has %d zones, layout %s wants %d", len(frame), layout.DeviceType, layout.ZoneCount)
	}
	if samples <= 0 {
		return nil, errors.New("samples must be > 0")
	}
	angles, colors, err := groupRing(layout, group, frame)
	if err != nil {
		return nil, err
	}
	out := make([]model.RGB, samples)
	for i := 0; i < samples; i++ {
		c, err := InterpolateAlongRing(360*float64(i)/float64(samples), angles, colors)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func groupRing(layout ZoneLayoutConfig, group string, frame model.Keyframe) ([]float64, []model.RGB, error) {
	var angles []float64
	var colors []model.RGB
	for _, z := range layout.Zones {
		if z.Group != group {
			continue
		}
		angles = append(angles, z.Angle)
		colors = append(colors, frame[z.Index])
	}
	if len(angles) == 0 {
		return nil, nil, fmt.Errorf("group %q not in layout %s", group, layout.DeviceType)
	}
	return angles, colors, nil
}

// RenderRing draws one group's gradient ring as a PNG. The ring is drawn
// supersampled at twice the requested size and downsampled with Lanczos so
// the edges come out smooth.
func RenderRing(layout ZoneLayoutConfig, group string, frame model.Keyframe, sizePx int) ([]byte, error) {
	if sizePx < 16 {
		return nil, errors.New("ring size too small")
	}
	angles, colors, err := groupRing(layout, group, frame)
	if err != nil {
		return nil, err
	}

	super := sizePx * 2
	img := image.NewNRGBA(image.Rect(0, 0, super, super))
	center := float64(super) / 2
	outer := center * 0.92
	inner := center * 0.58

	for y := 0; y < super; y++ {
		for x := 0; x < super; x++ {
			dx := float64(x) + 0.5 - center
			dy := center - (float64(y) + 0.5) // screen Y back to math Y
			dist := math.Hypot(dx, dy)
			if dist < inner || dist > outer {
				continue
			}
			angle := math.Atan2(dy, dx) * 180 / math.Pi
			c, err := InterpolateAlongRing(angle, angles, colors)
			if err != nil {
				return nil, err
			}
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}

	resized := imaging.Resize(img, sizePx, sizePx, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
