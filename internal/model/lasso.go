package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Lasso minimizes (1/(2n))·||y - Xw - b||² + Alpha·||w||₁ by cyclic
// coordinate descent, with an unpenalized intercept b.
type Lasso struct {
	Alpha   float64
	MaxIter int     // default 1000
	Tol     float64 // default 1e-4

	coef      []float64
	intercept float64
	iters     int
}

func (m *Lasso) Name() string { return "lasso" }

func (m *Lasso) Fit(X mat.Matrix, y []float64) error {
	xc, means, ym, err := center(X, y)
	if err != nil {
		return err
	}
	maxIter, tol := m.MaxIter, m.Tol
	if maxIter <= 0 {
		maxIter = 1000
	}
	if tol <= 0 {
		tol = 1e-4
	}
	n, p := xc.Dims()
	nf := float64(n)

	cols := make([][]float64, p)
	norms := make([]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = mat.Col(nil, j, xc)
		norms[j] = floats.Dot(cols[j], cols[j]) / nf
	}
	resid := make([]float64, n)
	for i, v := range y {
		resid[i] = v - ym
	}

	w := make([]float64, p)
	m.iters = 0
	for it := 0; it < maxIter; it++ {
		m.iters = it + 1
		var maxDelta, maxW float64
		for j := 0; j < p; j++ {
			if norms[j] == 0 {
				continue
			}
			old := w[j]
			// rho is the correlation of column j with the partial residual.
			rho := floats.Dot(cols[j], resid)/nf + norms[j]*old
			w[j] = softThreshold(rho, m.Alpha) / norms[j]
			if d := w[j] - old; d != 0 {
				floats.AddScaled(resid, -d, cols[j])
				maxDelta = math.Max(maxDelta, math.Abs(d))
			}
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if maxW == 0 || maxDelta <= tol*maxW {
			break
		}
	}

	m.coef = w
	m.intercept = ym - floats.Dot(w, means)
	return nil
}

func softThreshold(x, t float64) float64 {
	switch {
	case x > t:
		return x - t
	case x < -t:
		return x + t
	}
	return 0
}

func (m *Lasso) Predict(X mat.Matrix) []float64 { return predict(X, m.coef, m.intercept) }

func (m *Lasso) Coefficients() []float64 { return append([]float64(nil), m.coef...) }

func (m *Lasso) Intercept() float64 { return m.intercept }

// Iterations reports how many coordinate descent sweeps the last Fit ran.
func (m *Lasso) Iterations() int { return m.iters }
