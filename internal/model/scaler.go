package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/speechassess/cefrgrade/internal/apperr"
)

// MinMaxScaler maps each column to [0, 1] using the range seen in Fit.
// Constant columns map to 0.
type MinMaxScaler struct {
	min, scale []float64
}

func (s *MinMaxScaler) Fit(X mat.Matrix) {
	r, c := X.Dims()
	s.min = make([]float64, c)
	s.scale = make([]float64, c)
	for j := 0; j < c; j++ {
		lo, hi := X.At(0, j), X.At(0, j)
		for i := 1; i < r; i++ {
			v := X.At(i, j)
			lo = min(lo, v)
			hi = max(hi, v)
		}
		s.min[j] = lo
		s.scale[j] = 1
		if hi > lo {
			s.scale[j] = 1 / (hi - lo)
		}
	}
}

// Transform scales X with the fitted ranges. Values outside the fitted range
// fall outside [0, 1].
func (s *MinMaxScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != len(s.min) {
		return nil, apperr.Shape("scaler columns", c, len(s.min))
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.min[j]) * s.scale[j]
	}, X)
	return out, nil
}
