package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Logistic is multinomial logistic regression on bucket indices. It
// minimizes the summed cross-entropy plus ||W||²/(2C) with L-BFGS; the
// intercepts are not penalized. C defaults to 1 and MaxIter to 100.
type Logistic struct {
	C       float64
	MaxIter int

	classes   []int
	coef      *mat.Dense // classes × features
	intercept []float64
	features  int
	iters     int
}

func (m *Logistic) Name() string { return "logistic" }

// Classes are the bucket indices seen by the last Fit, ascending.
func (m *Logistic) Classes() []int { return append([]int(nil), m.classes...) }

// Iterations reports how many L-BFGS iterations the last Fit ran.
func (m *Logistic) Iterations() int { return m.iters }

func (m *Logistic) Fit(X mat.Matrix, y []float64) error {
	x, err := rows(X, len(y))
	if err != nil {
		return err
	}
	strength := m.C
	if strength <= 0 {
		strength = 1
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}

	seen := map[int]bool{}
	for _, v := range y {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return fmt.Errorf("logistic: target %g is not a bucket index", v)
		}
		seen[int(v)] = true
	}
	m.classes = m.classes[:0]
	for k := range seen {
		m.classes = append(m.classes, k)
	}
	sort.Ints(m.classes)
	classOf := make(map[int]int, len(m.classes))
	for i, k := range m.classes {
		classOf[k] = i
	}
	labels := make([]int, len(y))
	for i, v := range y {
		labels[i] = classOf[int(v)]
	}

	k, p := len(m.classes), len(x[0])
	m.features = p
	m.coef = mat.NewDense(k, p, nil)
	m.intercept = make([]float64, k)
	m.iters = 0
	if k == 1 {
		return nil
	}

	// params hold W row by row, then the k intercepts
	nw := k * p
	scores := make([]float64, k)
	objective := func(params, grad []float64) float64 {
		if grad != nil {
			for i := range grad {
				grad[i] = 0
			}
		}
		var loss float64
		for i, row := range x {
			for c := 0; c < k; c++ {
				scores[c] = params[nw+c] + floats.Dot(params[c*p:(c+1)*p], row)
			}
			lse := floats.LogSumExp(scores)
			loss += lse - scores[labels[i]]
			if grad == nil {
				continue
			}
			for c := 0; c < k; c++ {
				g := math.Exp(scores[c] - lse)
				if c == labels[i] {
					g--
				}
				floats.AddScaled(grad[c*p:(c+1)*p], g, row)
				grad[nw+c] += g
			}
		}
		w := params[:nw]
		loss += floats.Dot(w, w) / (2 * strength)
		if grad != nil {
			floats.AddScaled(grad[:nw], 1/strength, w)
		}
		return loss
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 { return objective(params, nil) },
		Grad: func(grad, params []float64) { objective(params, grad) },
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-4,
		Converger:         &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 20},
	}
	res, err := optimize.Minimize(problem, make([]float64, nw+k), settings, &optimize.LBFGS{})
	if res == nil {
		return fmt.Errorf("logistic: %w", err)
	}
	// A failed line search still leaves the best point found.
	if floats.HasNaN(res.X) {
		return fmt.Errorf("logistic: optimization diverged (%v)", res.Status)
	}
	m.iters = res.MajorIterations
	m.coef = mat.NewDense(k, p, append([]float64(nil), res.X[:nw]...))
	copy(m.intercept, res.X[nw:])
	return nil
}

// Predict returns the most probable bucket index per row.
func (m *Logistic) Predict(X mat.Matrix) []float64 {
	checkColumns(X, m.features)
	r, c := X.Dims()
	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, X)
		best, bestScore := 0, math.Inf(-1)
		for j := range m.classes {
			s := m.intercept[j] + floats.Dot(m.coef.RawRowView(j), row)
			if s > bestScore {
				best, bestScore = j, s
			}
		}
		out[i] = float64(m.classes[best])
	}
	return out
}
