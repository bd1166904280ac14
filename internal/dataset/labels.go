package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Aspects maps the aspect number used in label file names to its name.
var Aspects = map[string]string{
	"1": "content",
	"2": "pronunciation",
	"3": "vocabulary",
}

// AspectName returns the name of aspect, or an error for unknown aspects.
func AspectName(aspect string) (string, error) {
	name, ok := Aspects[strings.TrimSpace(aspect)]
	if !ok {
		return "", fmt.Errorf("unknown aspect %q (want 1, 2 or 3)", aspect)
	}
	return name, nil
}

// LabelPath is the grader label file for a test part and aspect.
func LabelPath(dataDir, part, aspect string) string {
	return filepath.Join(dataDir, "grader.spk2p"+part+"s"+aspect)
}

// FeaturePath is the feature workbook produced for an acoustic model. The
// full model name is used twice, so "exp/tdnn" resolves to
// <dataDir>/exp/tdnn/exp/tdnn-feats.xlsx.
func FeaturePath(dataDir, modelName string) string {
	return filepath.Join(dataDir, modelName, modelName+"-feats.xlsx")
}

// Labels holds annotated grades in file order.
type Labels struct {
	IDs    []string
	Grades map[string]float64
}

// Len returns the number of labelled speakers.
func (l Labels) Len() int { return len(l.IDs) }

// ReadLabels parses "speaker grade" lines. Blank lines are skipped. A
// speaker listed twice keeps its first position and its last grade.
func ReadLabels(r io.Reader) (Labels, error) {
	l := Labels{Grades: make(map[string]float64)}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return Labels{}, fmt.Errorf("labels line %d: want \"speaker grade\", got %d fields", line, len(fields))
		}
		g, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Labels{}, fmt.Errorf("labels line %d: grade %q: %w", line, fields[1], err)
		}
		if _, seen := l.Grades[fields[0]]; !seen {
			l.IDs = append(l.IDs, fields[0])
		}
		l.Grades[fields[0]] = g
	}
	if err := sc.Err(); err != nil {
		return Labels{}, fmt.Errorf("read labels: %w", err)
	}
	return l, nil
}

// LoadLabels reads a label file from disk.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return Labels{}, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	l, err := ReadLabels(f)
	if err != nil {
		return Labels{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// DefaultLevels maps CEFR labels used by the human annotators to buckets on
// the b1 scale.
var DefaultLevels = map[string]int{
	"未達B1": 0,
	"B1":   1,
	"B2":   2,
}

// ParseLevels parses "label=bucket" pairs separated by commas.
func ParseLevels(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("level mapping %q: want label=bucket", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("level mapping %q: %w", part, err)
		}
		out[strings.TrimSpace(k)] = n
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("level mapping is empty")
	}
	return out, nil
}

// ReadAnnotator parses "speaker level" lines of a second annotator and maps
// each level through levels.
func ReadAnnotator(r io.Reader, levels map[string]int) (map[string]int, error) {
	if levels == nil {
		levels = DefaultLevels
	}
	out := make(map[string]int)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("annotator line %d: want \"speaker level\", got %d fields", line, len(fields))
		}
		b, ok := levels[fields[1]]
		if !ok {
			return nil, fmt.Errorf("annotator line %d: unknown level %q", line, fields[1])
		}
		out[fields[0]] = b
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read annotator: %w", err)
	}
	return out, nil
}

// LoadAnnotator reads an annotator file from disk.
func LoadAnnotator(path string, levels map[string]int) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotator: %w", err)
	}
	defer f.Close()
	a, err := ReadAnnotator(f, levels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}
