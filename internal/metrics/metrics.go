// Package metrics scores predicted grades against annotated grades, both as
// continuous values (MSE, RMSE, Pearson r) and as CEFR buckets (per-class
// precision/recall/F1, accuracy, confusion matrix, Cohen's kappa).
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/speechassess/cefrgrade/internal/apperr"
)

// RegressionScores summarizes continuous prediction quality.
type RegressionScores struct {
	MSE     float64
	RMSE    float64
	Pearson float64
}

// Regression computes MSE, RMSE and the Pearson correlation coefficient.
// Pearson r of a constant series is NaN.
func Regression(yTrue, yPred []float64) (RegressionScores, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return RegressionScores{}, apperr.Shape("y_true/y_pred", len(yTrue), len(yPred))
	}
	var sq float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sq += d * d
	}
	mse := sq / float64(len(yTrue))
	return RegressionScores{
		MSE:     mse,
		RMSE:    math.Sqrt(mse),
		Pearson: stat.Correlation(yTrue, yPred, nil),
	}, nil
}

// ClassScores are the per-label scores of a classification report.
type ClassScores struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Average is a macro or weighted average over labels.
type Average struct {
	Precision float64
	Recall    float64
	F1        float64
}

// ClassificationReport mirrors the usual precision/recall/F1 table.
type ClassificationReport struct {
	Classes  []ClassScores
	Accuracy float64
	Macro    Average
	Weighted Average
	Support  int
}

// Classify builds the report over the sorted union of labels in yTrue and
// yPred. Undefined ratios (no predictions or no support) score 0.
func Classify(yTrue, yPred []int) (ClassificationReport, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return ClassificationReport{}, apperr.Shape("y_true/y_pred buckets", len(yTrue), len(yPred))
	}
	cm, err := Confusion(yTrue, yPred)
	if err != nil {
		return ClassificationReport{}, err
	}

	rep := ClassificationReport{Support: len(yTrue)}
	correct := 0
	for i, label := range cm.Labels {
		tp := cm.Counts[i][i]
		correct += tp
		predicted, actual := 0, 0
		for j := range cm.Labels {
			predicted += cm.Counts[j][i]
			actual += cm.Counts[i][j]
		}
		cs := ClassScores{
			Label:     label,
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if cs.Precision+cs.Recall > 0 {
			cs.F1 = 2 * cs.Precision * cs.Recall / (cs.Precision + cs.Recall)
		}
		rep.Classes = append(rep.Classes, cs)
	}
	rep.Accuracy = float64(correct) / float64(len(yTrue))

	n := float64(len(rep.Classes))
	for _, cs := range rep.Classes {
		w := float64(cs.Support) / float64(rep.Support)
		rep.Macro.Precision += cs.Precision / n
		rep.Macro.Recall += cs.Recall / n
		rep.Macro.F1 += cs.F1 / n
		rep.Weighted.Precision += cs.Precision * w
		rep.Weighted.Recall += cs.Recall * w
		rep.Weighted.F1 += cs.F1 * w
	}
	return rep, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report as an aligned text table.
func (r ClassificationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, cs := range r.Classes {
		fmt.Fprintf(&b, "%12d %10.2f %10.2f %10.2f %10d\n", cs.Label, cs.Precision, cs.Recall, cs.F1, cs.Support)
	}
	fmt.Fprintf(&b, "\n%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Support)
	fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", "macro avg", r.Macro.Precision, r.Macro.Recall, r.Macro.F1, r.Support)
	fmt.Fprintf(&b, "%12s %10.2f %10.2f %10.2f %10d\n", "weighted avg", r.Weighted.Precision, r.Weighted.Recall, r.Weighted.F1, r.Support)
	return b.String()
}

// ConfusionMatrix counts true label (row) against predicted label (column).
type ConfusionMatrix struct {
	Labels []int
	Counts [][]int
}

// Confusion builds the matrix over the sorted union of observed labels.
func Confusion(yTrue, yPred []int) (ConfusionMatrix, error) {
	if len(yTrue) != len(yPred) {
		return ConfusionMatrix{}, apperr.Shape("y_true/y_pred buckets", len(yTrue), len(yPred))
	}
	labels := unionLabels(yTrue, yPred)
	return confusionOver(labels, yTrue, yPred), nil
}

func confusionOver(labels, yTrue, yPred []int) ConfusionMatrix {
	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		ti, okT := index[yTrue[i]]
		pi, okP := index[yPred[i]]
		if okT && okP {
			counts[ti][pi]++
		}
	}
	return ConfusionMatrix{Labels: labels, Counts: counts}
}

func unionLabels(sets ...[]int) []int {
	seen := make(map[int]struct{})
	for _, s := range sets {
		for _, v := range s {
			seen[v] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// String renders the matrix with label headers.
func (m ConfusionMatrix) String() string {
	var b strings.Builder
	b.WriteString("true\\pred")
	for _, l := range m.Labels {
		fmt.Fprintf(&b, " %5d", l)
	}
	b.WriteString("\n")
	for i, l := range m.Labels {
		fmt.Fprintf(&b, "%9d", l)
		for _, c := range m.Counts[i] {
			fmt.Fprintf(&b, " %5d", c)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// CohenKappa measures agreement between two raters over labels. When labels
// is empty the sorted union of observed labels is used. Pairs with a label
// outside labels are ignored.
func CohenKappa(a, b []int, labels []int) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, apperr.Shape("rater labels", len(a), len(b))
	}
	if len(labels) == 0 {
		labels = unionLabels(a, b)
	}
	cm := confusionOver(labels, a, b)

	var n, agree float64
	rows := make([]float64, len(labels))
	cols := make([]float64, len(labels))
	for i := range cm.Counts {
		for j, c := range cm.Counts[i] {
			n += float64(c)
			rows[i] += float64(c)
			cols[j] += float64(c)
			if i == j {
				agree += float64(c)
			}
		}
	}
	if n == 0 {
		return math.NaN(), nil
	}
	var expected float64
	for i := range labels {
		expected += rows[i] * cols[i]
	}
	po := agree / n
	pe := expected / (n * n)
	return (po - pe) / (1 - pe), nil
}
