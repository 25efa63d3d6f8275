package service

import (
	"math"

	"zonelight-agent/internal/model"
)

// HSVToRGB converts hue [0,360), saturation [0,100], value [0,100] to an
// 8-bit RGB tuple. Out-of-range inputs are clamped (hue wraps).
func HSVToRGB(h, s, v float64) model.RGB {
	h = math.Mod(h+360, 360)
	s = clampFloat(s/100, 0, 1)
	v = clampFloat(v/100, 0, 1)
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	r1, g1, b1 := 0.0, 0.0, 0.0
	switch {
	case h < 60:
		r1, g1, b1 = c, x, 0
	case h < 120:
		r1, g1, b1 = x, c, 0
	case h < 180:
		r1, g1, b1 = 0, c, x
	case h < 240:
		r1, g1, b1 = 0, x, c
	case h < 300:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}
	return model.RGB{
		R: uint8(clampInt(int(math.Round((r1+m)*255)), 0, 255)),
		G: uint8(clampInt(int(math.Round((g1+m)*255)), 0, 255)),
		B: uint8(clampInt(int(math.Round((b1+m)*255)), 0, 255)),
	}
}

// RGBToHSV is the inverse conversion, returning hue [0,360) and
// saturation/value in [0,100]. Gray has no defined hue; it comes back as 0.
func RGBToHSV(c model.RGB) (float64, float64, float64) {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255
	maxV := math.Max(r, math.Max(g, b))
	minV := math.Min(r, math.Min(g, b))
	delta := maxV - minV
	h := 0.0
	if delta != 0 {
		switch maxV {
		case r:
			h = 60 * math.Mod((g-b)/delta, 6)
		case g:
			h = 60 * (((b - r) / delta) + 2)
		default:
			h = 60 * (((r - g) / delta) + 4)
		}
	}
	if h < 0 {
		h += 360
	}
	s := 0.0
	if maxV > 0 {
		s = delta / maxV
	}
	return h, s * 100, maxV * 100
}

// RelativeLuminance computes sRGB relative luminance with standard
// coefficients and gamma expansion.
func RelativeLuminance(c model.RGB) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

func linearize(ch uint8) float64 {
	v := float64(ch) / 255
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// ContrastColor picks a legible overlay color for text drawn on a swatch:
// black on bright backgrounds, white on dark ones.
func ContrastColor(c model.RGB) model.RGB {
	if RelativeLuminance(c) > 0.5 {
		return model.RGB{R: 0, G: 0, B: 0}
	}
	return model.RGB{R: 255, G: 255, B: 255}
}

func blendRGB(a, b model.RGB, t float64) model.RGB {
	t = clampFloat(t, 0, 1)
	return model.RGB{
		R: uint8(clampInt(int(math.Round(float64(a.R)+(float64(b.R)-float64(a.R))*t)), 0, 255)),
		G: uint8(clampInt(int(math.Round(float64(a.G)+(float64(b.G)-float64(a.G))*t)), 0, 255)),
		B: uint8(clampInt(int(math.Round(float64(a.B)+(float64(b.B)-float64(a.B))*t)), 0, 255)),
	}
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
