package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

func TestScanFindsRecordings(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b", "0002-3-1.wav"))
	touch(t, filepath.Join(dir, "a", "0001-3-1.WAV"))
	touch(t, filepath.Join(dir, "a", "0001-2-1.wav"))
	touch(t, filepath.Join(dir, "a", "notes.txt"))
	touch(t, filepath.Join(dir, ".cache", "0009-3-1.wav"))

	recs, err := Scan(dir, Options{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d recordings: %+v", len(recs), recs)
	}
	if recs[0].Speaker != "0001" || recs[0].Part != "2" || recs[2].Speaker != "0002" {
		t.Fatalf("unexpected order or parse: %+v", recs)
	}
}

func TestScanFilters(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "0001-3-1.wav"))
	touch(t, filepath.Join(dir, "0001-2-1.wav"))
	touch(t, filepath.Join(dir, "0002-3-1.wav"))
	touch(t, filepath.Join(dir, "0004.wav"))

	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"part keeps unlabelled names", Options{Part: "3"}, 3},
		{"speaker", Options{Speakers: map[string]struct{}{"0001": {}}}, 2},
		{"part and speaker", Options{Part: "3", Speakers: map[string]struct{}{"0002": {}}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Scan(dir, tt.opts)
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			if len(recs) != tt.want {
				t.Fatalf("got %d recordings, want %d", len(recs), tt.want)
			}
		})
	}
}

func TestScanSingleFileAndExpand(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "0003-1.wav")
	touch(t, file)

	recs, err := Expand([]string{file, dir}, Options{})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(recs) != 1 || recs[0].Speaker != "0003" || recs[0].Part != "1" {
		t.Fatalf("got %+v", recs)
	}

	txt := filepath.Join(dir, "x.txt")
	touch(t, txt)
	if _, err := Scan(txt, Options{}); err == nil {
		t.Fatalf("expected error for non-audio file")
	}
	if _, err := Scan(filepath.Join(dir, "missing"), Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
