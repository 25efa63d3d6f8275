package service

import (
	"math"
	"testing"

	"zonelight-agent/internal/model"
)

func TestHSVToRGBKnownValues(t *testing.T) {
	cases := []struct {
		h, s, v float64
		want    model.RGB
	}{
		{0, 0, 0, model.RGB{R: 0, G: 0, B: 0}},
		{0, 0, 100, model.RGB{R: 255, G: 255, B: 255}},
		{0, 100, 100, model.RGB{R: 255, G: 0, B: 0}},
		{120, 100, 100, model.RGB{R: 0, G: 255, B: 0}},
		{240, 100, 100, model.RGB{R: 0, G: 0, B: 255}},
		{60, 100, 100, model.RGB{R: 255, G: 255, B: 0}},
		{360, 100, 100, model.RGB{R: 255, G: 0, B: 0}},
	}
	for _, c := range cases {
		got := HSVToRGB(c.h, c.s, c.v)
		if got != c.want {
			t.Fatalf("HSVToRGB(%v,%v,%v) = %+v, want %+v", c.h, c.s, c.v, got, c.want)
		}
	}
}

func TestRGBToHSVGrayHueIsZero(t *testing.T) {
	for _, v := range []uint8{0, 60, 128, 255} {
		h, s, _ := RGBToHSV(model.RGB{R: v, G: v, B: v})
		if h != 0 {
			t.Fatalf("gray %d: hue = %v, want 0", v, h)
		}
		if s != 0 {
			t.Fatalf("gray %d: saturation = %v, want 0", v, s)
		}
	}
}

func TestHSVRoundTripPreservesSaturationAndValue(t *testing.T) {
	for h := 0; h < 360; h += 30 {
		for s := 20; s <= 100; s += 40 {
			for v := 20; v <= 100; v += 40 {
				rgb := HSVToRGB(float64(h), float64(s), float64(v))
				_, gotS, gotV := RGBToHSV(rgb)
				if math.Abs(gotS-float64(s)) > 1.0 {
					t.Fatalf("hsv(%d,%d,%d): saturation round-trip %v", h, s, v, gotS)
				}
				if math.Abs(gotV-float64(v)) > 1.0 {
					t.Fatalf("hsv(%d,%d,%d): value round-trip %v", h, s, v, gotV)
				}
			}
		}
	}
}

func TestHSVRoundTripPreservesHue(t *testing.T) {
	for h := 0; h < 360; h += 15 {
		rgb := HSVToRGB(float64(h), 100, 100)
		gotH, _, _ := RGBToHSV(rgb)
		diff := math.Abs(gotH - float64(h))
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 1.0 {
			t.Fatalf("hue %d round-tripped to %v", h, gotH)
		}
	}
}

func TestRelativeLuminanceEndpoints(t *testing.T) {
	if l := RelativeLuminance(model.RGB{R: 0, G: 0, B: 0}); l != 0 {
		t.Fatalf("black luminance = %v", l)
	}
	if l := RelativeLuminance(model.RGB{R: 255, G: 255, B: 255}); math.Abs(l-1) > 1e-9 {
		t.Fatalf("white luminance = %v", l)
	}
	// Green dominates the coefficients.
	g := RelativeLuminance(model.RGB{G: 255})
	r := RelativeLuminance(model.RGB{R: 255})
	b := RelativeLuminance(model.RGB{B: 255})
	if !(g > r && r > b) {
		t.Fatalf("luminance ordering wrong: r=%v g=%v b=%v", r, g, b)
	}
}

func TestContrastColor(t *testing.T) {
	black := model.RGB{R: 0, G: 0, B: 0}
	white := model.RGB{R: 255, G: 255, B: 255}
	if got := ContrastColor(white); got != black {
		t.Fatalf("contrast on white = %+v, want black", got)
	}
	if got := ContrastColor(black); got != white {
		t.Fatalf("contrast on black = %+v, want white", got)
	}
	if got := ContrastColor(model.RGB{R: 255, G: 255, B: 0}); got != black {
		t.Fatalf("contrast on yellow = %+v, want black", got)
	}
	if got := ContrastColor(model.RGB{B: 200}); got != white {
		t.Fatalf("contrast on deep blue = %+v, want white", got)
	}
}
