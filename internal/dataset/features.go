package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSkipColumns is the number of leading metadata columns in a feature
// table (speaker, part, file and recognizer outputs).
const DefaultSkipColumns = 6

// TableOptions control how a feature table is read.
type TableOptions struct {
	// Part keeps only rows whose "part" column equals Part. Empty keeps all.
	Part string
	// SkipColumns leading columns are metadata. Negative means the default.
	SkipColumns int
}

// FeatureRow is one speaker's scalar features.
type FeatureRow struct {
	Speaker string
	Part    string
	Values  []float64
}

// FeatureTable is a parsed feature table. Rows are in file order; a speaker
// appearing twice keeps the later row.
type FeatureTable struct {
	Columns []string
	Rows    []FeatureRow
	index   map[string]int
}

// Lookup returns the feature row of speaker.
func (t *FeatureTable) Lookup(speaker string) (FeatureRow, bool) {
	i, ok := t.index[speaker]
	if !ok {
		return FeatureRow{}, false
	}
	return t.Rows[i], true
}

// Excluded reports whether a column never serves as a model input.
func Excluded(column string) bool {
	return strings.Contains(column, "list") || strings.Contains(column, "voiced_probs")
}

// LoadFeatures reads a feature table from an .xlsx or .csv file.
func LoadFeatures(path string, opts TableOptions) (*FeatureTable, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readWorkbook(path)
	case ".csv":
		records, err = readCSV(path)
	default:
		return nil, fmt.Errorf("feature table %s: unsupported extension (want .xlsx or .csv)", path)
	}
	if err != nil {
		return nil, err
	}
	t, err := ParseFeatures(records, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open feature workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("feature workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature csv: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read feature csv: %w", err)
	}
	return rows, nil
}

// ParseFeatures builds a table from raw records whose first record is the
// header. The header must contain "spkID".
func ParseFeatures(records [][]string, opts TableOptions) (*FeatureTable, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("feature table is empty")
	}
	skip := opts.SkipColumns
	if skip < 0 {
		skip = DefaultSkipColumns
	}

	header := records[0]
	spkCol, partCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "spkID":
			spkCol = i
		case "part":
			partCol = i
		}
	}
	if spkCol < 0 {
		return nil, fmt.Errorf("feature table has no spkID column")
	}

	var cols []int
	t := &FeatureTable{index: make(map[string]int)}
	for i := skip; i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if name == "" || Excluded(name) {
			continue
		}
		cols = append(cols, i)
		t.Columns = append(t.Columns, name)
	}

	for n, rec := range records[1:] {
		speaker := cell(rec, spkCol)
		if speaker == "" {
			continue
		}
		part := ""
		if partCol >= 0 {
			part = cell(rec, partCol)
		}
		if opts.Part != "" && partCol >= 0 && part != opts.Part {
			continue
		}
		row := FeatureRow{Speaker: speaker, Part: part, Values: make([]float64, len(cols))}
		for j, c := range cols {
			v, err := strconv.ParseFloat(cell(rec, c), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", n+2, header[c], err)
			}
			row.Values[j] = v
		}
		if i, dup := t.index[speaker]; dup {
			t.Rows[i] = row
			continue
		}
		t.index[speaker] = len(t.Rows)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
