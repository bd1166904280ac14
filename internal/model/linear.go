package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Linear is least squares with an intercept and an optional L2 penalty.
// Alpha 0 is ordinary least squares; rank-deficient inputs get the
// minimum-norm solution.
type Linear struct {
	Alpha float64

	coef      []float64
	intercept float64
}

func (m *Linear) Name() string {
	if m.Alpha > 0 {
		return "ridge"
	}
	return "linear"
}

func (m *Linear) Fit(X mat.Matrix, y []float64) error {
	xc, means, ym, err := center(X, y)
	if err != nil {
		return err
	}
	r, c := xc.Dims()

	// Ridge is solved as least squares on X stacked over sqrt(alpha)*I.
	a, b := mat.Matrix(xc), make([]float64, r, r+c)
	for i, v := range y {
		b[i] = v - ym
	}
	if m.Alpha > 0 {
		aug := mat.NewDense(r+c, c, nil)
		aug.Slice(0, r, 0, c).(*mat.Dense).Copy(xc)
		s := math.Sqrt(m.Alpha)
		for j := 0; j < c; j++ {
			aug.Set(r+j, j, s)
		}
		a = aug
		b = b[:r+c]
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return fmt.Errorf("linear: SVD factorization failed")
	}
	m.coef = make([]float64, c)
	if rank := svd.Rank(1e-12); rank > 0 {
		var w mat.VecDense
		svd.SolveVecTo(&w, mat.NewVecDense(len(b), b), rank)
		for j := 0; j < c; j++ {
			m.coef[j] = w.AtVec(j)
		}
	}
	m.intercept = ym
	for j, mu := range means {
		m.intercept -= m.coef[j] * mu
	}
	return nil
}

func (m *Linear) Predict(X mat.Matrix) []float64 { return predict(X, m.coef, m.intercept) }

func (m *Linear) Coefficients() []float64 { return append([]float64(nil), m.coef...) }

func (m *Linear) Intercept() float64 { return m.intercept }
