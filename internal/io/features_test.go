package io

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/speechassess/cefrgrade/internal/audio"
	"github.com/speechassess/cefrgrade/internal/dataset"
	"github.com/speechassess/cefrgrade/internal/stats"
)

func featureRows() []audio.FeatureRow {
	mk := func(spk string, f0 []float64, rms []float64) audio.FeatureRow {
		return audio.FeatureRow{
			Speaker:     spk,
			Part:        "3",
			File:        spk + "-3.wav",
			SampleRate:  16000,
			Duration:    1.5,
			Pitch:       stats.PitchProfile(f0),
			Energy:      stats.EnergyProfile(rms),
			VoicedProbs: make([]float64, len(f0)),
		}
	}
	return []audio.FeatureRow{
		mk("s1", []float64{0, 110, 120}, []float64{0.1, 0.2, 0.3}),
		mk("s2", []float64{200, 0, 210}, []float64{0.2, 0.4, 0.1}),
	}
}

// Tables written by extraction must load back as model inputs.
func TestWriteFeatureTable_LoadsBack(t *testing.T) {
	for _, ext := range []string{".xlsx", ".csv"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "feats", "m-feats"+ext)
			if err := WriteFeatureTable(path, "auto", featureRows()); err != nil {
				t.Fatalf("WriteFeatureTable: %v", err)
			}
			tab, err := dataset.LoadFeatures(path, dataset.TableOptions{Part: "3", SkipColumns: dataset.DefaultSkipColumns})
			if err != nil {
				t.Fatalf("LoadFeatures: %v", err)
			}
			if len(tab.Rows) != 2 || len(tab.Columns) != 5*8+4*8 {
				t.Fatalf("rows=%d columns=%d", len(tab.Rows), len(tab.Columns))
			}
			if tab.Columns[0] != "f0_number" {
				t.Fatalf("first feature column = %s", tab.Columns[0])
			}
			s1, _ := tab.Lookup("s1")
			if s1.Values[0] != 3 {
				t.Fatalf("s1 f0_number = %v", s1.Values[0])
			}
		})
	}
}

func TestWriteFeatureTable_Empty(t *testing.T) {
	if err := WriteFeatureTable(filepath.Join(t.TempDir(), "x.xlsx"), "", nil); err == nil {
		t.Fatalf("expected error for no rows")
	}
}

// A minute of 10 ms frames overflows an xlsx cell; csv keeps the whole list.
func TestWriteFeatureTable_LongFrameList(t *testing.T) {
	rms := make([]float64, 6000)
	for i := range rms {
		rms[i] = 0.0125508789 + float64(i)*1e-7
	}
	rows := []audio.FeatureRow{{
		Speaker:    "s1",
		Part:       "3",
		File:       "s1-3.wav",
		SampleRate: 16000,
		Duration:   60,
		Pitch:      stats.PitchProfile([]float64{0, 110, 120}),
		Energy:     stats.EnergyProfile(rms),
	}}
	dir := t.TempDir()

	err := WriteFeatureTable(filepath.Join(dir, "long.xlsx"), "auto", rows)
	if err == nil {
		t.Fatalf("expected error for frame list beyond xlsx cell limit")
	}
	if !strings.Contains(err.Error(), "energy_rms_list") {
		t.Fatalf("error does not name the column: %v", err)
	}

	csvPath := filepath.Join(dir, "long.csv")
	if err := WriteFeatureTable(csvPath, "auto", rows); err != nil {
		t.Fatalf("WriteFeatureTable csv: %v", err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	want := formatList(rows[0].Energy.Frames)
	if !strings.Contains(string(data), want) {
		t.Fatalf("csv lost part of the %d-character energy list", len(want))
	}
}
