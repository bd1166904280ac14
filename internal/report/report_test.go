package report

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/grade"
)

var b1 = grade.Thresholds{4.0, 5.0}

func TestReport_IdenticalPredictions(t *testing.T) {
	y := []float64{2.0, 3.5, 4.0, 4.5, 5.0, 6.0}
	ids := []string{"a", "b", "c", "d", "e", "f"}
	acc := NewAccumulator()

	res, err := NewReporter().Report(y, y, ids, b1, acc, "1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if res.Regression.MSE != 0 {
		t.Errorf("MSE = %v, want 0", res.Regression.MSE)
	}
	if res.Accuracy() != 1 {
		t.Errorf("accuracy = %v, want 1", res.Accuracy())
	}
	for _, row := range acc.Rows("1") {
		if row.Diff != 0 {
			t.Errorf("row %s diff = %d", row.SpeakerID, row.Diff)
		}
	}
}

func TestReport_RoundsPredictionsBeforeBucketizing(t *testing.T) {
	acc := NewAccumulator()
	res, err := NewReporter().Report(
		[]float64{3.5, 4.5, 5.0},
		[]float64{3.6, 4.4, 5.0},
		[]string{"s1", "s2", "s3"},
		b1, acc, "1",
	)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	wantTrue := []int{0, 1, 2}
	wantPred := []int{0, 1, 2}
	for i, row := range res.Rows {
		if row.TrueBucket != wantTrue[i] || row.PredBucket != wantPred[i] {
			t.Errorf("row %d = %+v", i, row)
		}
	}
	if res.Accuracy() != 1 {
		t.Fatalf("accuracy = %v, want 1", res.Accuracy())
	}
	// the raw prediction is reported, not the rounded one
	if res.Rows[0].PredGrade != 3.6 {
		t.Fatalf("pred grade = %v", res.Rows[0].PredGrade)
	}
}

func TestReport_BucketPredictions(t *testing.T) {
	yTrue := []float64{3.5, 4.5, 5.0}
	ids := []string{"a", "b", "c"}
	res, err := NewBucketReporter().Report(yTrue, []float64{0, 1, 1}, ids, b1, NewAccumulator(), "1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	for i, want := range []int{0, 1, 1} {
		if res.Rows[i].PredBucket != want {
			t.Fatalf("row %d = %+v, want bucket %d", i, res.Rows[i], want)
		}
	}
	if res.Rows[2].Diff != -1 || math.Abs(res.Accuracy()-2.0/3.0) > 1e-12 {
		t.Fatalf("diff = %d accuracy = %v", res.Rows[2].Diff, res.Accuracy())
	}
	// the same outputs read as grades all fall below 4.0
	graded, err := NewReporter().Report(yTrue, []float64{0, 1, 1}, ids, b1, NewAccumulator(), "1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if graded.Rows[1].PredBucket != 0 {
		t.Fatalf("grade mode row = %+v", graded.Rows[1])
	}
}

func TestReport_BucketPredictionsOutOfRange(t *testing.T) {
	for _, p := range []float64{1.5, 3, -1} {
		acc := NewAccumulator()
		if _, err := NewBucketReporter().Report([]float64{4}, []float64{p}, []string{"s"}, b1, acc, "1"); err == nil {
			t.Fatalf("expected error for bucket %v", p)
		}
		if acc.Len() != 0 {
			t.Fatalf("failed report must not append rows")
		}
	}
}

func TestReport_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name        string
		yTrue, yPre []float64
		ids         []string
	}{
		{"pred shorter", []float64{1, 2}, []float64{1}, []string{"a", "b"}},
		{"ids shorter", []float64{1, 2}, []float64{1, 2}, []string{"a"}},
		{"empty", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator()
			_, err := NewReporter().Report(tt.yTrue, tt.yPre, tt.ids, b1, acc, "1")
			if !errors.Is(err, apperr.ErrShapeMismatch) {
				t.Fatalf("expected ErrShapeMismatch, got %v", err)
			}
			if acc.Len() != 0 {
				t.Fatalf("failed report must not append rows")
			}
		})
	}
}

func TestReport_ConstantTruthPearsonNaN(t *testing.T) {
	res, err := NewReporter().Report([]float64{4, 4}, []float64{3, 5}, []string{"a", "b"}, b1, NewAccumulator(), "1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !math.IsNaN(res.Regression.Pearson) {
		t.Fatalf("pearson = %v, want NaN", res.Regression.Pearson)
	}
}

func TestReport_LogsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(&buf)
	defer SetLogger(nil)

	if _, err := NewReporter().Report([]float64{3, 5}, []float64{3, 5}, []string{"a", "b"}, b1, NewAccumulator(), "2"); err != nil {
		t.Fatalf("Report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"fold=2", "MSE 0", "weighted avg", "true\\pred"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestAccumulator_FoldOrderAndSummary(t *testing.T) {
	acc := NewAccumulator("1", "2", "3")
	r := NewReporter()
	if _, err := r.Report([]float64{3, 5}, []float64{3, 5}, []string{"a", "b"}, b1, acc, "2"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Report([]float64{3, 5}, []float64{5, 3}, []string{"c", "d"}, b1, acc, "1"); err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(acc.Folds(), ","); got != "1,2,3" {
		t.Fatalf("folds = %s", got)
	}
	if len(acc.Rows("3")) != 0 || acc.Len() != 4 {
		t.Fatalf("unexpected rows: len=%d", acc.Len())
	}

	s := acc.Summary()
	if len(s.Rows) != 2 {
		t.Fatalf("summary has %d rows, want 2 (fold 3 was never reported)", len(s.Rows))
	}
	if s.Rows[0].Fold != "1" || s.Rows[0].Accuracy != 0 || s.Rows[1].Accuracy != 1 {
		t.Fatalf("summary rows = %+v", s.Rows)
	}
	if s.MeanAccuracy != 0.5 {
		t.Fatalf("mean accuracy = %v", s.MeanAccuracy)
	}
	if len(s.Rows[0].Values())+1 != len(SummaryColumns) {
		t.Fatalf("values do not line up with SummaryColumns")
	}
	if !strings.Contains(FormatSummary(s), "Folds: 2") {
		t.Fatalf("FormatSummary = %q", FormatSummary(s))
	}
}
