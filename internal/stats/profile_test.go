package stats

import (
	"math"
	"strings"
	"testing"
)

func TestPitchProfile_DropsUnvoicedFrames(t *testing.T) {
	p := PitchProfile([]float64{0, 100, 0, 200, 300})

	raw, _ := p.Record(Raw)
	if raw.Count != 5 || raw.Min != 0 {
		t.Fatalf("raw record should include unvoiced frames: %+v", raw)
	}
	voiced, _ := p.Record(Filtered)
	if voiced.Count != 3 || voiced.Mean != 200 || voiced.Min != 100 {
		t.Fatalf("filtered record = %+v", voiced)
	}
	mm, _ := p.Record(MinMaxNorm)
	if mm.Min != 0 || mm.Max != 1 || mm.Median != 0.5 {
		t.Fatalf("min-max record should be computed on voiced frames: %+v", mm)
	}
	lg, _ := p.Record(LogNorm)
	if math.IsInf(lg.Min, -1) {
		t.Fatalf("log record must not see unvoiced zeros: %+v", lg)
	}
}

func TestPitchProfile_AllUnvoiced_ZeroedNormalizedRecords(t *testing.T) {
	p := PitchProfile([]float64{0, 0, 0})
	for _, v := range []Variant{Filtered, ZScoreNorm, MinMaxNorm, LogNorm} {
		rec, ok := p.Record(v)
		if !ok {
			t.Fatalf("missing %s record", v)
		}
		if rec != (Record{}) {
			t.Fatalf("%s record = %+v, want zero", v, rec)
		}
	}
}

func TestEnergyProfile_Variants(t *testing.T) {
	p := EnergyProfile([]float64{0.1, 0.2, 0.3})
	if len(p.Entries) != 4 {
		t.Fatalf("expected raw + 3 normalized entries, got %d", len(p.Entries))
	}
	if _, ok := p.Record(Filtered); ok {
		t.Fatalf("energy profile has no filtered variant")
	}
	if p.FramesColumn() != "energy_rms_list" {
		t.Fatalf("frames column = %q", p.FramesColumn())
	}
	mm, _ := p.Record(MinMaxNorm)
	if mm.Max != 1 || mm.Min != 0 {
		t.Fatalf("min-max record should describe the normalized track: %+v", mm)
	}
}

func TestMerge_DisjointColumns(t *testing.T) {
	cols, err := Merge(PitchProfile([]float64{100, 0, 120}), EnergyProfile([]float64{0.1, 0.4}))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(cols) != 5*8+4*8 {
		t.Fatalf("got %d columns", len(cols))
	}
	want := map[string]bool{"f0_number": true, "f0_nz_mean": true, "f0_mvn_std": true, "f0_lgn_min": true, "energy_summ": true, "rms_mmn_max": true}
	for _, c := range cols {
		delete(want, c.Name)
		if strings.Contains(c.Name, "list") {
			t.Fatalf("frame list leaked into scalar columns: %s", c.Name)
		}
	}
	if len(want) != 0 {
		t.Fatalf("missing columns %v", want)
	}
}

func TestMerge_DuplicateProfileFails(t *testing.T) {
	p := EnergyProfile([]float64{1})
	if _, err := Merge(p, p); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}
