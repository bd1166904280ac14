package io

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/speechassess/cefrgrade/internal/stats"
)

func TestWriteRecord_YAMLKeepsColumnOrder(t *testing.T) {
	cols := stats.Summarize([]float64{1, 2, 3}).Columns("f0_")
	var buf bytes.Buffer
	if err := WriteRecord(&buf, "yaml", cols); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "f0_number: 3\n") || strings.Index(out, "f0_summ") > strings.Index(out, "f0_max") {
		t.Fatalf("unexpected yaml:\n%s", out)
	}
	var m map[string]float64
	if err := yaml.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if m["f0_mean"] != 2 || len(m) != 8 {
		t.Fatalf("decoded = %v", m)
	}
}

// NaN (log of a negative) and -Inf (log of zero) must stay distinguishable.
func TestWriteRecord_JSONNonFiniteMarkers(t *testing.T) {
	cols := []stats.Column{
		{Name: "a", Value: 1.5},
		{Name: "b", Value: math.NaN()},
		{Name: "c", Value: math.Inf(-1)},
		{Name: "d", Value: math.Inf(1)},
	}
	var buf bytes.Buffer
	if err := WriteRecord(&buf, "json", cols); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	want := map[string]any{"a": 1.5, "b": "NaN", "c": "-Inf", "d": "+Inf"}
	for k, w := range want {
		if m[k] != w {
			t.Errorf("%s = %v (%T), want %v", k, m[k], m[k], w)
		}
	}
}

func TestWriteRecord_UnknownFormat(t *testing.T) {
	if err := WriteRecord(&bytes.Buffer{}, "toml", nil); err == nil {
		t.Fatalf("expected error")
	}
}
