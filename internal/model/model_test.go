package model

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/speechassess/cefrgrade/internal/apperr"
)

func line() (*mat.Dense, []float64) {
	x := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 4})
	return x, []float64{1, 3, 5, 7, 9}
}

func TestLinear_RecoversLine(t *testing.T) {
	x, y := line()
	m := &Linear{}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if c := m.Coefficients(); math.Abs(c[0]-2) > 1e-9 || math.Abs(m.Intercept()-1) > 1e-9 {
		t.Fatalf("coef=%v intercept=%v", c, m.Intercept())
	}
	got := m.Predict(mat.NewDense(1, 1, []float64{10}))
	if math.Abs(got[0]-21) > 1e-9 {
		t.Fatalf("predict(10) = %v", got[0])
	}
}

func TestLinear_RankDeficient(t *testing.T) {
	// duplicated column: minimum-norm solution splits the weight
	x := mat.NewDense(4, 2, []float64{0, 0, 1, 1, 2, 2, 3, 3})
	m := &Linear{}
	if err := m.Fit(x, []float64{0, 2, 4, 6}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	c := m.Coefficients()
	if math.Abs(c[0]-1) > 1e-9 || math.Abs(c[1]-1) > 1e-9 {
		t.Fatalf("coef = %v, want [1 1]", c)
	}
}

func TestLinear_RidgeShrinks(t *testing.T) {
	x, y := line()
	m := &Linear{Alpha: 10}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	// centered x has sum of squares 10, so w = 2*10/(10+10)
	if c := m.Coefficients()[0]; math.Abs(c-1) > 1e-9 {
		t.Fatalf("ridge coef = %v, want 1", c)
	}
	if m.Name() != "ridge" {
		t.Fatalf("name = %s", m.Name())
	}
}

func TestLasso_ZeroAlphaMatchesOLS(t *testing.T) {
	x := mat.NewDense(6, 2, []float64{
		1, 0,
		2, 1,
		3, 0,
		4, 1,
		5, 0,
		6, 1,
	})
	y := make([]float64, 6)
	for i := range y {
		y[i] = 0.5*x.At(i, 0) - 1.5*x.At(i, 1) + 2
	}
	m := &Lasso{Alpha: 0, Tol: 1e-10, MaxIter: 10000}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	c := m.Coefficients()
	if math.Abs(c[0]-0.5) > 1e-6 || math.Abs(c[1]+1.5) > 1e-6 || math.Abs(m.Intercept()-2) > 1e-6 {
		t.Fatalf("coef=%v intercept=%v", c, m.Intercept())
	}
}

func TestLasso_LargeAlphaPredictsMean(t *testing.T) {
	x, y := line()
	m := &Lasso{Alpha: 100}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Coefficients()[0] != 0 {
		t.Fatalf("coef = %v, want 0", m.Coefficients())
	}
	for _, p := range m.Predict(x) {
		if p != 5 {
			t.Fatalf("prediction = %v, want mean 5", p)
		}
	}
}

func TestLasso_SoftThresholdsSingleFeature(t *testing.T) {
	x, y := line()
	m := &Lasso{Alpha: 0.1}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	// rho = cov(x, y) = 4, var(x) = 2, so w = (4 - 0.1) / 2
	if c := m.Coefficients()[0]; math.Abs(c-1.95) > 1e-9 {
		t.Fatalf("coef = %v, want 1.95", c)
	}
}

func TestFit_ShapeMismatch(t *testing.T) {
	x, _ := line()
	for _, m := range []Regressor{&Linear{}, &Lasso{}, &GradientBoosting{}, &Logistic{}} {
		if err := m.Fit(x, []float64{1}); !errors.Is(err, apperr.ErrShapeMismatch) {
			t.Fatalf("%s: expected shape error, got %v", m.Name(), err)
		}
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"lasso", "lasso"},
		{"LINEAR", "linear"},
		{"", "lasso"},
		{"gbr", "gbr"},
		{"gradient-boosting", "gbr"},
		{"logistic", "logistic"},
	}
	for _, tt := range tests {
		m, err := New(tt.name, 0)
		if err != nil || m.Name() != tt.want {
			t.Fatalf("New(%q) = (%v, %v)", tt.name, m, err)
		}
	}
	if _, err := New("forest", 0.1); !apperr.IsUser(err) {
		t.Fatalf("expected user error, got %v", err)
	}
	if _, err := New("lasso", -1); !apperr.IsUser(err) {
		t.Fatalf("expected user error for negative alpha, got %v", err)
	}
}

func TestImportance(t *testing.T) {
	got := Importance([]string{"a", "b", "c", "d"}, []float64{0.5, 0, -1, 2})
	want := []Weight{{"d", 2}, {"a", 0.5}, {"c", -1}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMinMaxScaler(t *testing.T) {
	train := mat.NewDense(3, 2, []float64{0, 5, 5, 5, 10, 5})
	var s MinMaxScaler
	s.Fit(train)
	out, err := s.Transform(mat.NewDense(2, 2, []float64{5, 5, 20, 7}))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := []float64{0.5, 0, 2, 2}
	for i, w := range want {
		if got := out.At(i/2, i%2); math.Abs(got-w) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, got, w)
		}
	}
	if _, err := s.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Fatalf("expected column mismatch error")
	}
}

func step() (*mat.Dense, []float64) {
	x := mat.NewDense(10, 2, nil)
	y := make([]float64, 10)
	for i := range y {
		x.Set(i, 0, float64(i))
		x.Set(i, 1, 7)
		y[i] = 1
		if i >= 5 {
			y[i] = 3
		}
	}
	return x, y
}

func TestGradientBoosting_FitsStep(t *testing.T) {
	x, y := step()
	m := &GradientBoosting{}
	if err := m.Fit(x, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	// every stage removes a tenth of the residual: 0.9^100 is about 3e-5
	for i, p := range m.Predict(x) {
		if math.Abs(p-y[i]) > 1e-3 {
			t.Fatalf("prediction %d = %v, want %v", i, p, y[i])
		}
	}
	imp := m.FeatureImportances()
	if math.Abs(imp[0]-1) > 1e-12 || imp[1] != 0 {
		t.Fatalf("importances = %v, want [1 0]", imp)
	}
	if _, ok := Regressor(m).(Importancer); !ok {
		t.Fatalf("gbr does not report importances")
	}
}

func TestGradientBoosting_ConstantTargetPredictsMean(t *testing.T) {
	x, _ := step()
	m := &GradientBoosting{NEstimators: 5}
	if err := m.Fit(x, []float64{4, 4, 4, 4, 4, 4, 4, 4, 4, 4}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for _, p := range m.Predict(mat.NewDense(1, 2, []float64{100, 7})) {
		if p != 4 {
			t.Fatalf("prediction = %v, want 4", p)
		}
	}
	if imp := m.FeatureImportances(); imp[0] != 0 || imp[1] != 0 {
		t.Fatalf("importances = %v, want zeros", imp)
	}
}

func TestLogistic_SeparatesBuckets(t *testing.T) {
	var xs, ys []float64
	for c, center := range []float64{1.5, 11.5, 21.5} {
		for d := -1.5; d <= 1.5; d++ {
			xs = append(xs, center+d)
			ys = append(ys, float64(c))
		}
	}
	m := &Logistic{}
	if err := m.Fit(mat.NewDense(len(xs), 1, xs), ys); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := m.Classes(); len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Fatalf("classes = %v", got)
	}
	got := m.Predict(mat.NewDense(3, 1, []float64{1.5, 11.5, 21.5}))
	for i, want := range []float64{0, 1, 2} {
		if got[i] != want {
			t.Fatalf("predictions = %v, want [0 1 2]", got)
		}
	}
	if _, ok := Regressor(m).(Classifier); !ok {
		t.Fatalf("logistic is not a Classifier")
	}
}

func TestLogistic_SingleClass(t *testing.T) {
	x, _ := line()
	m := &Logistic{}
	if err := m.Fit(x, []float64{2, 2, 2, 2, 2}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for _, p := range m.Predict(x) {
		if p != 2 {
			t.Fatalf("prediction = %v, want 2", p)
		}
	}
}

func TestLogistic_RejectsGrades(t *testing.T) {
	x, _ := line()
	if err := (&Logistic{}).Fit(x, []float64{0, 1, 1.5, 2, 2}); err == nil {
		t.Fatalf("expected error for fractional target")
	}
}

func separable() (*mat.Dense, []int) {
	x := mat.NewDense(8, 3, nil)
	labels := make([]int, 8)
	for i := range labels {
		labels[i] = i % 2
		x.Set(i, 0, float64(labels[i]*10+i))
		x.Set(i, 1, 1)
		x.Set(i, 2, -3)
	}
	return x, labels
}

func TestSelectFeatures_KeepsInformativeColumn(t *testing.T) {
	x, labels := separable()
	sel, err := SelectFeatures(x, labels, SelectOptions{Seed: 66})
	if err != nil {
		t.Fatalf("SelectFeatures: %v", err)
	}
	if !sel.Support[0] || sel.Support[1] || sel.Support[2] {
		t.Fatalf("support = %v, want [true false false]", sel.Support)
	}
	if math.Abs(sel.Importances[0]-1) > 1e-12 || sel.Std[1] != 0 {
		t.Fatalf("importances = %v std = %v", sel.Importances, sel.Std)
	}
	if math.Abs(sel.Threshold-1.0/3.0) > 1e-12 {
		t.Fatalf("threshold = %v, want 1/3", sel.Threshold)
	}

	names := []string{"f0_mean", "f0_std", "energy_max"}
	if got := sel.Names(names); len(got) != 1 || got[0] != "f0_mean" {
		t.Fatalf("names = %v", got)
	}
	if r := sel.Ranked(names); len(r) != 1 || r[0].Feature != "f0_mean" || r[0].Importance != sel.Importances[0] {
		t.Fatalf("ranked = %+v", r)
	}
	out, err := sel.Transform(x)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if r, c := out.Dims(); r != 8 || c != 1 || out.At(3, 0) != x.At(3, 0) {
		t.Fatalf("transform dims (%d, %d)", r, c)
	}
	if _, err := sel.Transform(mat.NewDense(1, 2, nil)); err == nil {
		t.Fatalf("expected column mismatch error")
	}
}

func TestSelectFeatures_SeedIsDeterministic(t *testing.T) {
	x := mat.NewDense(12, 4, nil)
	labels := make([]int, 12)
	for i := range labels {
		labels[i] = i % 3
		for j := 0; j < 4; j++ {
			x.Set(i, j, math.Sin(float64(i*(j+1))))
		}
	}
	a, err := SelectFeatures(x, labels, SelectOptions{Seed: 7})
	if err != nil {
		t.Fatalf("SelectFeatures: %v", err)
	}
	b, _ := SelectFeatures(x, labels, SelectOptions{Seed: 7})
	var sum float64
	for j := range a.Importances {
		if a.Importances[j] != b.Importances[j] {
			t.Fatalf("importances differ for the same seed: %v vs %v", a.Importances, b.Importances)
		}
		sum += a.Importances[j]
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importances sum to %v", sum)
	}
	if len(a.Indices()) == 0 {
		t.Fatalf("no feature selected")
	}
}

func TestSelectFeatures_Errors(t *testing.T) {
	x, _ := separable()
	if _, err := SelectFeatures(x, []int{0, 1}, SelectOptions{}); !errors.Is(err, apperr.ErrShapeMismatch) {
		t.Fatalf("expected shape error, got %v", err)
	}
	if _, err := SelectFeatures(x, []int{0, 1, 0, 1, 0, 1, 0, -1}, SelectOptions{}); err == nil {
		t.Fatalf("expected error for negative bucket")
	}
}
