// Package report compares predicted and annotated grades fold by fold and
// accumulates the per-speaker rows and per-fold metrics of a cross-validation
// run.
package report

import (
	"fmt"
	"strings"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/grade"
	"github.com/speechassess/cefrgrade/internal/metrics"
)

// Row is one evaluated speaker.
type Row struct {
	SpeakerID  string
	TrueGrade  float64
	TrueBucket int
	PredGrade  float64
	PredBucket int
	// Diff is PredBucket - TrueBucket.
	Diff int
}

// RowColumns are the column headers of a fold sheet.
var RowColumns = []string{"spk_id", "anno", "anno(cefr)", "pred", "pred(cefr)", "results"}

// FoldResult is everything computed for one fold.
type FoldResult struct {
	Fold       string
	Regression metrics.RegressionScores
	Report     metrics.ClassificationReport
	Confusion  metrics.ConfusionMatrix
	Rows       []Row
}

// Accuracy is the bucket accuracy of the fold.
func (r FoldResult) Accuracy() float64 { return r.Report.Accuracy }

// Prediction says what a model's outputs are.
type Prediction int

const (
	// Grades are continuous; they are rounded to the nearest half point and
	// bucketized.
	Grades Prediction = iota
	// Buckets are bucket indices from a classifier and are used as is.
	Buckets
)

// Reporter turns predictions into fold results.
type Reporter struct {
	Predictions Prediction
}

// NewReporter returns a Reporter for continuous grade predictions.
func NewReporter() *Reporter {
	return &Reporter{Predictions: Grades}
}

// NewBucketReporter returns a Reporter for models that predict buckets.
func NewBucketReporter() *Reporter {
	return &Reporter{Predictions: Buckets}
}

// Report bucketizes yTrue and yPred with t, scores the fold, appends one Row
// per speaker to acc under fold and returns the fold result. Inputs must be
// non-empty and of equal length. In Buckets mode yPred holds bucket indices
// of t and the regression scores compare them with the raw grades.
func (r *Reporter) Report(yTrue, yPred []float64, ids []string, t grade.Thresholds, acc *Accumulator, fold string) (FoldResult, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) || len(yTrue) != len(ids) {
		return FoldResult{}, apperr.Shape("y_true/y_pred/ids", len(yTrue), len(yPred), len(ids))
	}
	if acc == nil {
		return FoldResult{}, fmt.Errorf("report: nil accumulator")
	}

	trueBuckets := grade.BucketizeAll(yTrue, t)
	predBuckets := make([]int, len(yPred))
	for i, p := range yPred {
		if r.Predictions == Buckets {
			b := int(p)
			if float64(b) != p || b < 0 || b >= t.Buckets() {
				return FoldResult{}, fmt.Errorf("report: %s: prediction %g is not a bucket of %s", ids[i], p, t)
			}
			predBuckets[i] = b
			continue
		}
		predBuckets[i] = grade.Bucketize(grade.RoundHalf(p), t)
	}

	reg, err := metrics.Regression(yTrue, yPred)
	if err != nil {
		return FoldResult{}, err
	}
	cls, err := metrics.Classify(trueBuckets, predBuckets)
	if err != nil {
		return FoldResult{}, err
	}
	cm, err := metrics.Confusion(trueBuckets, predBuckets)
	if err != nil {
		return FoldResult{}, err
	}

	rows := make([]Row, len(yTrue))
	for i := range yTrue {
		rows[i] = Row{
			SpeakerID:  ids[i],
			TrueGrade:  yTrue[i],
			TrueBucket: trueBuckets[i],
			PredGrade:  yPred[i],
			PredBucket: predBuckets[i],
			Diff:       predBuckets[i] - trueBuckets[i],
		}
	}

	res := FoldResult{Fold: fold, Regression: reg, Report: cls, Confusion: cm, Rows: rows}
	acc.Append(fold, rows...)
	acc.record(res)

	emit(res)
	return res, nil
}

// emit writes the raw rows, coefficients and classification tables to the
// package logger.
func emit(res FoldResult) {
	if !logger.Enabled() {
		return
	}
	logf(res.Fold, "%s", strings.Join([]string{"spk_id", "y_test", "y_test_cefr", "y_pred", "y_pred_cefr"}, ", "))
	for _, row := range res.Rows {
		logf(res.Fold, "%s %g %d %g %d", row.SpeakerID, row.TrueGrade, row.TrueBucket, row.PredGrade, row.PredBucket)
	}
	logf(res.Fold, "MSE %g", res.Regression.MSE)
	logf(res.Fold, "RMSE %g", res.Regression.RMSE)
	logf(res.Fold, "Pearson %g", res.Regression.Pearson)
	for _, line := range strings.Split(strings.TrimRight(res.Report.String(), "\n"), "\n") {
		logf(res.Fold, "%s", line)
	}
	for _, line := range strings.Split(strings.TrimRight(res.Confusion.String(), "\n"), "\n") {
		logf(res.Fold, "%s", line)
	}
}
