package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/speechassess/cefrgrade/internal/audio"
)

// FeatureMetaColumns lead every feature table. Their count matches the
// default number of skipped metadata columns when the table is read back.
var FeatureMetaColumns = []string{"spkID", "part", "file", "duration", "sample_rate", "frames"}

// WriteFeatureTable writes extracted feature rows as a workbook or csv file.
// Frame lists go last so they never shift the scalar columns. A frame list
// longer than an xlsx cell can hold is an error; csv has no such limit.
func WriteFeatureTable(path, format string, rows []audio.FeatureRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("feature table: no rows")
	}
	actual, err := resolveFormat(path, format, tableFormats, "xlsx")
	if err != nil {
		return fmt.Errorf("write feature table: %w", err)
	}

	first, err := rows[0].Columns()
	if err != nil {
		return err
	}
	header := append([]string(nil), FeatureMetaColumns...)
	for _, c := range first {
		header = append(header, c.Name)
	}
	listColumns := []string{rows[0].Pitch.FramesColumn(), "f0_voiced_probs", rows[0].Energy.FramesColumn()}
	header = append(header, listColumns...)

	s := sheet{name: "features", header: header}
	for _, r := range rows {
		cols, err := r.Columns()
		if err != nil {
			return fmt.Errorf("%s: %w", r.File, err)
		}
		if len(cols) != len(first) {
			return fmt.Errorf("%s: %d feature columns, want %d", r.File, len(cols), len(first))
		}
		row := []any{r.Speaker, r.Part, r.File, r.Duration, r.SampleRate, len(r.Energy.Frames)}
		for _, c := range cols {
			row = append(row, c.Value)
		}
		lists := []string{formatList(r.Pitch.Frames), formatList(r.VoicedProbs), formatList(r.Energy.Frames)}
		for i, l := range lists {
			if actual == "xlsx" && utf8.RuneCountInString(l) > excelize.TotalCellChars {
				return fmt.Errorf("%s: %s needs %d characters, an xlsx cell holds at most %d; write the table as csv",
					r.File, listColumns[i], utf8.RuneCountInString(l), excelize.TotalCellChars)
			}
			row = append(row, l)
		}
		s.rows = append(s.rows, row)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if actual == "xlsx" {
		return writeWorkbook(path, []sheet{s})
	}
	return writeCSV(path, s)
}

// IsTablePath reports whether path has a feature table extension.
func IsTablePath(path string) bool {
	_, ok := tableFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}
