package io

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/speechassess/cefrgrade/internal/model"
	"github.com/speechassess/cefrgrade/internal/report"
)

// SummarySheet names the aggregate metrics sheet of a report workbook.
const SummarySheet = "summary"

var tableFormats = map[string]string{".xlsx": "xlsx", ".csv": "csv"}

func foldSheet(acc *report.Accumulator, fold string) sheet {
	s := sheet{name: fold, header: report.RowColumns}
	for _, r := range acc.Rows(fold) {
		s.rows = append(s.rows, []any{r.SpeakerID, r.TrueGrade, r.TrueBucket, r.PredGrade, r.PredBucket, r.Diff})
	}
	return s
}

func summarySheet(sum report.Summary) sheet {
	s := sheet{name: SummarySheet, header: report.SummaryColumns}
	for _, r := range sum.Rows {
		row := []any{r.Fold}
		for _, v := range r.Values() {
			row = append(row, v)
		}
		s.rows = append(s.rows, row)
	}
	return s
}

// WriteReport writes the per-fold detail and the summary table. For xlsx,
// path is a workbook with one sheet per fold followed by a summary sheet.
// For csv, path names a directory (any .csv extension is dropped) that gets
// <fold>.csv files and summary.csv.
func WriteReport(path, format string, acc *report.Accumulator, sum report.Summary) error {
	actual, err := resolveFormat(path, format, tableFormats, "xlsx")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	sheets := make([]sheet, 0, len(acc.Folds())+1)
	for _, fold := range acc.Folds() {
		sheets = append(sheets, foldSheet(acc, fold))
	}
	sheets = append(sheets, summarySheet(sum))

	if actual == "xlsx" {
		return writeWorkbook(path, sheets)
	}
	dir := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, s := range sheets {
		if err := writeCSV(filepath.Join(dir, s.name+".csv"), s); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetricReport writes only the summary table, as a single-sheet
// workbook or a csv file.
func WriteMetricReport(path, format string, sum report.Summary) error {
	actual, err := resolveFormat(path, format, tableFormats, "xlsx")
	if err != nil {
		return fmt.Errorf("write metric report: %w", err)
	}
	s := summarySheet(sum)
	if actual == "xlsx" {
		return writeWorkbook(path, []sheet{s})
	}
	return writeCSV(path, s)
}

func writeCSV(path string, s sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(s.header); err != nil {
		return err
	}
	for _, row := range s.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellString(v)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	}
	return fmt.Sprint(v)
}

// WritePredictions writes <dir>/predictions.txt with one "pred | target"
// line per test sample.
func WritePredictions(dir string, yPred, yTrue []float64) (string, error) {
	if len(yPred) != len(yTrue) {
		return "", fmt.Errorf("predictions: %d predictions for %d targets", len(yPred), len(yTrue))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	lines := make([]string, len(yPred))
	for i := range yPred {
		lines[i] = formatFloat(yPred[i]) + " | " + formatFloat(yTrue[i])
	}
	path := filepath.Join(dir, "predictions.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteImportances writes "feature importance std" lines for the features a
// fold kept, in the given order, to <dir>/feature_importances.txt.
func WriteImportances(dir string, ranked []model.RankedFeature) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	lines := make([]string, len(ranked))
	for i, r := range ranked {
		lines[i] = r.Feature + " " + formatFloat(r.Importance) + " " + formatFloat(r.Std)
	}
	path := filepath.Join(dir, "feature_importances.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
