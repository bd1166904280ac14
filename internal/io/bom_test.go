package io

import (
	"os"
	"path/filepath"
	"testing"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

func minimalBOM() *cdx.BOM {
	bom := cdx.NewBOM()
	bom.SpecVersion = cdx.SpecVersion1_6
	bom.Metadata = &cdx.Metadata{
		Component: &cdx.Component{Name: "lasso-grader"},
	}
	return bom
}

func TestParseSpecVersion(t *testing.T) {
	tcs := []struct {
		in   string
		want cdx.SpecVersion
		ok   bool
	}{
		{"1.5", cdx.SpecVersion1_5, true},
		{" 1.6 ", cdx.SpecVersion1_6, true},
		{"1.4", cdx.SpecVersion1_6, false},
		{"", cdx.SpecVersion1_6, false},
		{"nope", cdx.SpecVersion1_6, false},
	}
	for _, tc := range tcs {
		got, ok := ParseSpecVersion(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseSpecVersion(%q) = (%v,%v), want (%v,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWriteBOM_RoundTrip(t *testing.T) {
	for _, tc := range []struct{ file, format, spec string }{
		{"bom.json", "auto", ""},
		{"bom.json", " json ", "1.6"},
		{"bom.xml", "auto", ""},
		{"bom.xml", "xml", "1.5"},
	} {
		t.Run(tc.file+"/"+tc.format, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), tc.file)
			if err := WriteBOM(minimalBOM(), out, tc.format, tc.spec); err != nil {
				t.Fatalf("WriteBOM: %v", err)
			}
			got, err := ReadBOM(out, "")
			if err != nil {
				t.Fatalf("ReadBOM: %v", err)
			}
			if got.Metadata == nil || got.Metadata.Component == nil || got.Metadata.Component.Name != "lasso-grader" {
				t.Fatalf("roundtrip BOM missing metadata.component.name")
			}
		})
	}
}

func TestWriteBOM_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := WriteBOM(minimalBOM(), filepath.Join(dir, "bom.json"), "xml", ""); err == nil {
		t.Fatalf("expected extension mismatch error")
	}
	if err := WriteBOM(minimalBOM(), filepath.Join(dir, "bom.json"), "yaml", ""); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if err := WriteBOM(minimalBOM(), filepath.Join(dir, "bom.json"), "json", "1.2"); err == nil {
		t.Fatalf("expected unsupported spec version error")
	}
}

func TestReadBOM_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadBOM(filepath.Join(dir, "missing.json"), "auto"); err == nil {
		t.Fatalf("expected error for missing file")
	}
	p := filepath.Join(dir, "bom.json")
	if err := os.WriteFile(p, []byte(`{`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadBOM(p, "json"); err == nil {
		t.Fatalf("expected decode error for invalid JSON")
	}
}
