// Package model implements the regressors and bucket classifiers used to
// predict grades from acoustic features, and impurity-based feature selection.
package model

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/speechassess/cefrgrade/internal/apperr"
)

// Regressor predicts a continuous grade per row of a feature matrix.
type Regressor interface {
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) []float64
	Name() string
}

// LinearModel is a Regressor with one weight per feature.
type LinearModel interface {
	Regressor
	// Coefficients are per feature, in column order, after Fit.
	Coefficients() []float64
	Intercept() float64
}

// Importancer reports normalized impurity-based importances per feature.
type Importancer interface {
	FeatureImportances() []float64
}

// Classifier is a Regressor trained on and predicting bucket indices.
type Classifier interface {
	Regressor
	Classes() []int
}

// DefaultAlpha is the regularization strength used when none is configured.
const DefaultAlpha = 0.1

// Names lists the models New accepts.
func Names() []string { return []string{"lasso", "linear", "gbr", "logistic"} }

// New returns the model called name. alpha is the penalty of the linear
// models; gbr and logistic use their own defaults.
func New(name string, alpha float64) (Regressor, error) {
	if alpha < 0 {
		return nil, apperr.Userf("alpha must be >= 0, got %g", alpha)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lasso", "":
		return &Lasso{Alpha: alpha}, nil
	case "linear", "ridge", "ols":
		return &Linear{Alpha: alpha}, nil
	case "gbr", "gradient-boosting", "boosting":
		return &GradientBoosting{}, nil
	case "logistic", "logreg":
		return &Logistic{}, nil
	}
	return nil, apperr.Userf("unknown regressor %q (want one of %s)", name, strings.Join(Names(), ", "))
}

// center returns X with column means removed, the column means and mean(y).
func center(X mat.Matrix, y []float64) (*mat.Dense, []float64, float64, error) {
	r, c := X.Dims()
	if r == 0 || r != len(y) {
		return nil, nil, 0, apperr.Shape("X rows/y", r, len(y))
	}
	means := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			means[j] += X.At(i, j)
		}
		means[j] /= float64(r)
	}
	xc := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xc.Set(i, j, X.At(i, j)-means[j])
		}
	}
	var ym float64
	for _, v := range y {
		ym += v
	}
	return xc, means, ym / float64(r), nil
}

func predict(X mat.Matrix, coef []float64, intercept float64) []float64 {
	r, c := X.Dims()
	if c != len(coef) {
		panic(fmt.Sprintf("model: predict with %d features, fitted on %d", c, len(coef)))
	}
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		v := intercept
		for j := 0; j < c; j++ {
			v += X.At(i, j) * coef[j]
		}
		out[i] = v
	}
	return out
}

// Weight is a feature and its fitted coefficient.
type Weight struct {
	Feature string
	Coef    float64
}

// Importance returns the non-zero coefficients ranked by descending weight.
func Importance(features []string, coef []float64) []Weight {
	var out []Weight
	for i, c := range coef {
		if c == 0 || i >= len(features) {
			continue
		}
		out = append(out, Weight{Feature: features[i], Coef: c})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Coef > out[j].Coef })
	return out
}
