package stats

import "fmt"

// Feature identifies the acoustic track a profile was computed from.
type Feature int

const (
	Pitch Feature = iota
	Energy
)

func (f Feature) String() string {
	switch f {
	case Pitch:
		return "f0"
	case Energy:
		return "energy"
	}
	return fmt.Sprintf("Feature(%d)", int(f))
}

// prefixes keeps the historical column prefixes so feature tables stay
// compatible with files produced by earlier tooling.
var prefixes = map[Feature]map[Variant]string{
	Pitch: {
		Raw:        "f0_",
		Filtered:   "f0_nz_",
		ZScoreNorm: "f0_mvn_",
		MinMaxNorm: "f0_mmn_",
		LogNorm:    "f0_lgn_",
	},
	Energy: {
		Raw:        "energy_",
		Filtered:   "energy_nz_",
		ZScoreNorm: "rms_mvn_",
		MinMaxNorm: "rms_mmn_",
		LogNorm:    "rms_lgn_",
	},
}

// Prefix returns the column prefix for a feature/variant pair.
func Prefix(f Feature, v Variant) string {
	return prefixes[f][v]
}

// Entry is one summarized variant of a feature track.
type Entry struct {
	Variant Variant
	Record  Record
}

// Profile is the merged set of records computed for one feature track.
type Profile struct {
	Feature Feature
	Frames  []float64
	Entries []Entry
}

// FramesColumn names the column holding the raw frame list. Columns whose
// name contains "list" are never used as scalar model inputs.
func (p Profile) FramesColumn() string {
	if p.Feature == Energy {
		return "energy_rms_list"
	}
	return "f0_list"
}

// Record returns the entry for v, if present.
func (p Profile) Record(v Variant) (Record, bool) {
	for _, e := range p.Entries {
		if e.Variant == v {
			return e.Record, true
		}
	}
	return Record{}, false
}

// Columns flattens all entries into prefixed scalar columns.
func (p Profile) Columns() []Column {
	out := make([]Column, 0, len(p.Entries)*len(kindNames))
	for _, e := range p.Entries {
		out = append(out, e.Record.Columns(Prefix(p.Feature, e.Variant))...)
	}
	return out
}

// PitchProfile summarizes an f0 track: the raw track, the voiced frames only,
// and z-score, min-max and log normalizations of the voiced frames. When no
// frame is voiced the normalized records stay zero.
func PitchProfile(f0 []float64) Profile {
	voiced := NonZero(f0)
	p := Profile{
		Feature: Pitch,
		Frames:  append([]float64(nil), f0...),
		Entries: []Entry{
			{Variant: Raw, Record: Summarize(f0)},
			{Variant: Filtered, Record: Summarize(voiced)},
		},
	}
	for _, v := range []Variant{ZScoreNorm, MinMaxNorm, LogNorm} {
		rec := Record{}
		if len(voiced) > 0 {
			rec = Summarize(v.Apply(voiced))
		}
		p.Entries = append(p.Entries, Entry{Variant: v, Record: rec})
	}
	return p
}

// EnergyProfile summarizes an RMS track and its z-score, min-max and log
// normalizations. Silent frames stay in every variant, so min-max of a
// constant track and log of a zero frame propagate NaN/-Inf.
func EnergyProfile(rms []float64) Profile {
	p := Profile{
		Feature: Energy,
		Frames:  append([]float64(nil), rms...),
		Entries: []Entry{{Variant: Raw, Record: Summarize(rms)}},
	}
	for _, v := range []Variant{ZScoreNorm, MinMaxNorm, LogNorm} {
		p.Entries = append(p.Entries, Entry{Variant: v, Record: Summarize(v.Apply(rms))})
	}
	return p
}

// Merge takes the key union of the profiles' columns. Keys are disjoint for
// the built-in prefixes; a collision is reported as an error.
func Merge(profiles ...Profile) ([]Column, error) {
	seen := make(map[string]struct{})
	var out []Column
	for _, p := range profiles {
		for _, c := range p.Columns() {
			if _, dup := seen[c.Name]; dup {
				return nil, fmt.Errorf("duplicate statistics column %q", c.Name)
			}
			seen[c.Name] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}
