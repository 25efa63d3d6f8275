package service

import (
	"fmt"
	"log"
	"math"

	"zonelight-agent/internal/model"
)

// Point is a group center in fractional canvas coordinates (0..1).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ZonePlacement positions one LED zone on a circle around its group
// center. Angle is a standard math angle in degrees (0 = +x axis,
// counter-clockwise positive); the Y flip into screen space happens only
// in PositionOf so placement and hit-testing can never disagree.
type ZonePlacement struct {
	Index  int     `json:"index"`
	Group  string  `json:"group"`
	Angle  float64 `json:"angle"`
	Radius float64 `json:"radius"`
	Label  string  `json:"label"`
}

// RotationTable maps a group member's position to the member position its
// color moves to. Clockwise and CounterClockwise must be inverse
// permutations.
type RotationTable struct {
	Clockwise        []int `json:"clockwise"`
	CounterClockwise []int `json:"counter_clockwise"`
}

type ZoneLayoutConfig struct {
	DeviceType string                   `json:"device_type"`
	ZoneCount  int                      `json:"zone_count"`
	Groups     map[string]Point         `json:"groups"`
	Zones      []ZonePlacement          `json:"zones"`
	Rotations  map[string]RotationTable `json:"rotations,omitempty"`
}

// DefaultHitRadius is the pixel distance within which a click selects a
// zone.
const DefaultHitRadius = 30.0

// ringOf builds one 4-member ring in top/right/bottom/left order plus the
// standard quarter-turn rotation tables.
func ringOf(group string, firstIndex int, labelPrefix string) []ZonePlacement {
	angles := []float64{90, 0, 270, 180}
	labels := []string{"top", "right", "bottom", "left"}
	zones := make([]ZonePlacement, 0, 4)
	for i := range angles {
		zones = append(zones, ZonePlacement{
			Index:  firstIndex + i,
			Group:  group,
			Angle:  angles[i],
			Radius: 0.16,
			Label:  labelPrefix + "-" + labels[i],
		})
	}
	return zones
}

var quarterTurn = RotationTable{
	Clockwise:        []int{1, 2, 3, 0},
	CounterClockwise: []int{3, 0, 1, 2},
}

var halfTurn = RotationTable{
	Clockwise:        []int{1, 0},
	CounterClockwise: []int{1, 0},
}

func msiClawLayout() ZoneLayoutConfig {
	zones := append(ringOf("leftStick", 0, "left"), ringOf("rightStick", 4, "right")...)
	zones = append(zones, ZonePlacement{Index: 8, Group: "center", Label: "center"})
	return ZoneLayoutConfig{
		DeviceType: "msi-claw",
		ZoneCount:  9,
		Groups: map[string]Point{
			"leftStick":  {X: 0.25, Y: 0.5},
			"rightStick": {X: 0.75, Y: 0.5},
			"center":     {X: 0.5, Y: 0.82},
		},
		Zones: zones,
		Rotations: map[string]RotationTable{
			"leftStick":  quarterTurn,
			"rightStick": quarterTurn,
		},
	}
}

func legionGoLayout() ZoneLayoutConfig {
	zones := append(ringOf("leftRing", 0, "left"), ringOf("rightRing", 4, "right")...)
	return ZoneLayoutConfig{
		DeviceType: "legion-go",
		ZoneCount:  8,
		Groups: map[string]Point{
			"leftRing":  {X: 0.25, Y: 0.5},
			"rightRing": {X: 0.75, Y: 0.5},
		},
		Zones: zones,
		Rotations: map[string]RotationTable{
			"leftRing":  quarterTurn,
			"rightRing": quarterTurn,
		},
	}
}

func rogAllyLayout() ZoneLayoutConfig {
	return ZoneLayoutConfig{
		DeviceType: "rog-ally",
		ZoneCount:  4,
		Groups: map[string]Point{
			"leftStick":  {X: 0.25, Y: 0.5},
			"rightStick": {X: 0.75, Y: 0.5},
		},
		Zones: []ZonePlacement{
			{Index: 0, Group: "leftStick", Angle: 90, Radius: 0.16, Label: "left-top"},
			{Index: 1, Group: "leftStick", Angle: 270, Radius: 0.16, Label: "left-bottom"},
			{Index: 2, Group: "rightStick", Angle: 90, Radius: 0.16, Label: "right-top"},
			{Index: 3, Group: "rightStick", Angle: 270, Radius: 0.16, Label: "right-bottom"},
		},
		Rotations: map[string]RotationTable{
			"leftStick":  halfTurn,
			"rightStick": halfTurn,
		},
	}
}

var layouts = map[string]ZoneLayoutConfig{
	"msi-claw":  msiClawLayout(),
	"legion-go": legionGoLayout(),
	"rog-ally":  rogAllyLayout(),
}

// LayoutFor looks up the layout for a device type. Unknown types fall back
// to the msi-claw layout; the fallback is logged, never silent.
func LayoutFor(deviceType string) ZoneLayoutConfig {
	if l, ok := layouts[deviceType]; ok {
		return l
	}
	log.Printf("unknown device type %q, falling back to msi-claw layout", deviceType)
	return layouts["msi-claw"]
}

func LayoutForCategory(category model.DeviceCategory) ZoneLayoutConfig {
	return LayoutFor(string(category))
}

// ValidateLayout enforces the structural invariants: zone indices are a
// permutation of 0..N-1, every zone's group exists, and rotation tables
// match their group's member count, which must be 2 or 4. Rotation for any
// other group size is a configuration error, not a guess.
func ValidateLayout(l ZoneLayoutConfig) error {
	if l.ZoneCount <= 0 {
		return fmt.Errorf("layout %s: zone count must be > 0", l.DeviceType)
	}
	if len(l.Zones) != l.ZoneCount {
		return fmt.Errorf("layout %s: %d zones declared, zone count %d", l.DeviceType, len(l.Zones), l.ZoneCount)
	}
	seen := make([]bool, l.ZoneCount)
	for _, z := range l.Zones {
		if z.Index < 0 || z.Index >= l.ZoneCount {
			return fmt.Errorf("layout %s: zone index %d out of range", l.DeviceType, z.Index)
		}
		if seen[z.Index] {
			return fmt.Errorf("layout %s: duplicate zone index %d", l.DeviceType, z.Index)
		}
		seen[z.Index] = true
		if _, ok := l.Groups[z.Group]; !ok {
			return fmt.Errorf("layout %s: zone %d references unknown group %q", l.DeviceType, z.Index, z.Group)
		}
	}
	for group, table := range l.Rotations {
		members := groupMembers(l, group)
		if len(members) != 2 && len(members) != 4 {
			return fmt.Errorf("layout %s: rotation group %q has %d members, want 2 or 4", l.DeviceType, group, len(members))
		}
		if len(table.Clockwise) != len(members) || len(table.CounterClockwise) != len(members) {
			return fmt.Errorf("layout %s: rotation table for %q does not match member count %d", l.DeviceType, group, len(members))
		}
		if !isPermutation(table.Clockwise) || !isPermutation(table.CounterClockwise) {
			return fmt.Errorf("layout %s: rotation table for %q is not a permutation", l.DeviceType, group)
		}
	}
	return nil
}

func isPermutation(p []int) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func groupMembers(l ZoneLayoutConfig, group string) []ZonePlacement {
	var members []ZonePlacement
	for _, z := range l.Zones {
		if z.Group == group {
			members = append(members, z)
		}
	}
	return members
}

// Rotate returns a new keyframe with every rotation-enabled group's colors
// shifted one step around the ring. Zones outside any rotation group carry
// over unchanged.
func Rotate(frame model.Keyframe, clockwise bool, layout ZoneLayoutConfig) (model.Keyframe, error) {
	if len(frame) != layout.ZoneCount {
		return nil, fmt.Errorf("frame has %d zones, layout %s wants %d", len(frame), layout.DeviceType, layout.ZoneCount)
	}
	out := frame.Clone()
	for group, table := range layout.Rotations {
		members := groupMembers(layout, group)
		if len(table.Clockwise) != len(members) {
			continue
		}
		perm := table.Clockwise
		if !clockwise {
			perm = table.CounterClockwise
		}
		for i, m := range members {
			out[members[perm[i]].Index] = frame[m.Index]
		}
	}
	return out, nil
}

// PositionOf maps a zone index to pixel coordinates on a square canvas.
// The layout's math angles are flipped to screen space here (y grows
// downward).
func PositionOf(zoneIndex int, layout ZoneLayoutConfig, canvasSize float64) (float64, float64, error) {
	for _, z := range layout.Zones {
		if z.Index != zoneIndex {
			continue
		}
		center := layout.Groups[z.Group]
		rad := z.Angle * math.Pi / 180
		x := center.X*canvasSize + z.Radius*canvasSize*math.Cos(rad)
		y := center.Y*canvasSize - z.Radius*canvasSize*math.Sin(rad)
		return x, y, nil
	}
	return 0, 0, fmt.Errorf("zone index %d not in layout %s", zoneIndex, layout.DeviceType)
}

// HitTest returns the first zone (in declaration order) within radius
// pixels of the click point. Ties go to the earlier zone in the list.
func HitTest(x, y float64, layout ZoneLayoutConfig, canvasSize, radius float64) (int, bool) {
	for _, z := range layout.Zones {
		zx, zy, err := PositionOf(z.Index, layout, canvasSize)
		if err != nil {
			continue
		}
		if math.Hypot(x-zx, y-zy) <= radius {
			return z.Index, true
		}
	}
	return 0, false
}
