package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/grade"
)

func TestParseSequence(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []float64
		wantErr bool
	}{
		{name: "spaces", in: "1 2.5  3", want: []float64{1, 2.5, 3}},
		{name: "list column", in: "[110.5, 0, 98.25]\n", want: []float64{110.5, 0, 98.25}},
		{name: "empty", in: " [ ] ", want: []float64{}},
		{name: "nan passes through", in: "nan 1", want: nil},
		{name: "not a number", in: "1 two", wantErr: true},
		{name: "infinite", in: "inf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSequence(tt.in)
			if tt.wantErr {
				if !apperr.IsUser(err) {
					t.Fatalf("expected user error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSequence: %v", err)
			}
			if tt.want == nil {
				if len(got) != 2 || got[0] == got[0] {
					t.Fatalf("got %v, want [NaN 1]", got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestAnnotatorName(t *testing.T) {
	for path, want := range map[string]string{
		"data/grader.spk2p3s2.phd1": "phd1",
		"data/phd2":                 "phd2",
	} {
		if got := annotatorName(path); got != want {
			t.Errorf("annotatorName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestResolveLogLevel(t *testing.T) {
	defer viper.Reset()
	viper.Set("runs.log-level", "")
	if got, err := resolveLogLevel("runs"); err != nil || got != "standard" {
		t.Fatalf("default level = (%q, %v)", got, err)
	}
	viper.Set("runs.log-level", " DEBUG ")
	if got, err := resolveLogLevel("runs"); err != nil || got != "debug" {
		t.Fatalf("debug level = (%q, %v)", got, err)
	}
	viper.Set("runs.log-level", "loud")
	if _, err := resolveLogLevel("runs"); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestRunBucketize(t *testing.T) {
	defer viper.Reset()
	tests := []struct {
		name  string
		args  []string
		stdin string
		set   map[string]any
		want  string
	}{
		{
			name: "preset",
			args: []string{"3.5", "4", "5.5"},
			set:  map[string]any{"bucketize.preset": "b1"},
			want: "3.5 0\n4 1\n5.5 2\n",
		},
		{
			name: "rounded",
			args: []string{"3.8", "4.75"},
			set:  map[string]any{"bucketize.thresholds": "4,5", "bucketize.round": true},
			want: "3.8 1\n4.75 2\n",
		},
		{
			name:  "stdin",
			stdin: "[2.0, 6.9]",
			set:   map[string]any{"bucketize.preset": "cefr", "bucketize.input": "-"},
			want:  "2 0\n6.9 3\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			for k, v := range tt.set {
				viper.Set(k, v)
			}
			var out bytes.Buffer
			c := &cobra.Command{}
			c.SetOut(&out)
			c.SetIn(strings.NewReader(tt.stdin))
			if err := runBucketize(c, tt.args); err != nil {
				t.Fatalf("runBucketize: %v", err)
			}
			if out.String() != tt.want {
				t.Fatalf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}

	viper.Reset()
	if err := runBucketize(&cobra.Command{}, nil); !apperr.IsUser(err) {
		t.Fatalf("expected user error for no grades, got %v", err)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exp", "runs")
	if err := ensureDir(dir); err != nil {
		t.Fatalf("ensureDir: %v", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
	if err := ensureDir(""); err != nil {
		t.Fatalf("ensureDir(\"\"): %v", err)
	}
}

func TestSelectionThresholds(t *testing.T) {
	report, _ := grade.Preset("b1")
	all7, _ := grade.Preset("all7")
	tests := []struct {
		in   string
		want grade.Thresholds
	}{
		{"", report},
		{"  ", report},
		{"all7", all7},
		{"3,6", grade.Thresholds{3, 6}},
	}
	for _, tt := range tests {
		got, err := selectionThresholds(tt.in, report)
		if err != nil {
			t.Fatalf("selectionThresholds(%q): %v", tt.in, err)
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("selectionThresholds(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := selectionThresholds("5,4", report); err == nil {
		t.Fatal("descending cut points accepted")
	}
}
