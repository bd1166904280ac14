// Package grade maps continuous proficiency grades onto ordinal CEFR buckets.
package grade

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Thresholds are strictly increasing bucket cut points.
type Thresholds []float64

// Bucketize returns the number of thresholds that are <= g, i.e. the index of
// the right-open interval containing g.
func Bucketize(g float64, t Thresholds) int {
	return sort.Search(len(t), func(i int) bool { return t[i] > g })
}

// BucketizeAll applies Bucketize to every grade.
func BucketizeAll(gs []float64, t Thresholds) []int {
	out := make([]int, len(gs))
	for i, g := range gs {
		out[i] = Bucketize(g, t)
	}
	return out
}

// RoundHalf rounds g to the nearest 0.5 step. Exact quarter points round to
// the even half step (2.25 -> 2.0, 2.75 -> 3.0).
func RoundHalf(g float64) float64 {
	return math.RoundToEven(g*2) / 2
}

// Buckets returns the number of buckets t defines.
func (t Thresholds) Buckets() int { return len(t) + 1 }

// Validate checks that t is non-empty and strictly increasing.
func (t Thresholds) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("thresholds: at least one cut point is required")
	}
	for i := 1; i < len(t); i++ {
		if !(t[i] > t[i-1]) {
			return fmt.Errorf("thresholds: %v is not strictly increasing", []float64(t))
		}
	}
	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("thresholds: %v is not finite", v)
		}
	}
	return nil
}

func (t Thresholds) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ParseThresholds parses a comma separated list such as "4,5" or "2.5, 4.5, 6.5".
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("thresholds: %q is not a number", part)
		}
		t = append(t, v)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultPreset is used when neither thresholds nor a preset are given.
const DefaultPreset = "b1"

// Presets used by the grading experiments.
var presets = map[string]Thresholds{
	// B1 pass/merit on the 1-5 scale.
	"b1": {4.0, 5.0},
	// pre-A2 / A2 / B1 / B2 on the 1-7 scale.
	"cefr": {2.5, 4.5, 6.5},
	// Every integer grade on the 1-5 scale.
	"all5": {1.0, 2.0, 3.0, 4.0, 5.0},
	// Every integer grade on the 1-7 scale.
	"all7": {1.5, 2.5, 3.5, 4.5, 5.5, 6.5, 7.5},
}

// Preset returns a copy of the named threshold preset.
func Preset(name string) (Thresholds, bool) {
	t, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return append(Thresholds(nil), t...), true
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve picks explicit thresholds over a preset name.
func Resolve(explicit, preset string) (Thresholds, error) {
	if strings.TrimSpace(explicit) != "" {
		return ParseThresholds(explicit)
	}
	if strings.TrimSpace(preset) == "" {
		preset = DefaultPreset
	}
	t, ok := Preset(preset)
	if !ok {
		return nil, fmt.Errorf("unknown threshold preset %q (expected %s)", preset, strings.Join(PresetNames(), "|"))
	}
	return t, nil
}
