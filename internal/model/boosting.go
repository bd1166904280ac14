package model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GradientBoosting fits shallow regression trees to the residuals of the
// running prediction under squared error loss, starting from mean(y). Zero
// fields take the usual defaults: 100 stages, learning rate 0.1, depth 3,
// two samples to split and one per leaf.
type GradientBoosting struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	init     float64
	trees    []*tree
	features int
}

func (m *GradientBoosting) Name() string { return "gbr" }

func (m *GradientBoosting) defaults() {
	if m.NEstimators <= 0 {
		m.NEstimators = 100
	}
	if m.LearningRate <= 0 {
		m.LearningRate = 0.1
	}
	if m.MaxDepth <= 0 {
		m.MaxDepth = 3
	}
	if m.MinSamplesSplit < 2 {
		m.MinSamplesSplit = 2
	}
	if m.MinSamplesLeaf < 1 {
		m.MinSamplesLeaf = 1
	}
}

func (m *GradientBoosting) Fit(X mat.Matrix, y []float64) error {
	x, err := rows(X, len(y))
	if err != nil {
		return err
	}
	m.defaults()
	m.features = len(x[0])
	m.init = floats.Sum(y) / float64(len(y))
	m.trees = m.trees[:0]

	grower := regressionTree{MaxDepth: m.MaxDepth, MinSamplesSplit: m.MinSamplesSplit, MinSamplesLeaf: m.MinSamplesLeaf}
	current := make([]float64, len(y))
	for i := range current {
		current[i] = m.init
	}
	resid := make([]float64, len(y))
	for stage := 0; stage < m.NEstimators; stage++ {
		floats.SubTo(resid, y, current)
		t := grower.grow(x, resid)
		m.trees = append(m.trees, t)
		for i, row := range x {
			current[i] += m.LearningRate * t.eval(row)[0]
		}
	}
	return nil
}

func (m *GradientBoosting) Predict(X mat.Matrix) []float64 {
	checkColumns(X, m.features)
	r, c := X.Dims()
	out := make([]float64, r)
	row := make([]float64, c)
	for i := range out {
		mat.Row(row, i, X)
		v := m.init
		for _, t := range m.trees {
			v += m.LearningRate * t.eval(row)[0]
		}
		out[i] = v
	}
	return out
}

// FeatureImportances averages the normalized impurity decrease of every tree
// that split at least once and renormalizes the result to sum to 1.
func (m *GradientBoosting) FeatureImportances() []float64 {
	out := make([]float64, m.features)
	used := 0
	for _, t := range m.trees {
		if !t.split() {
			continue
		}
		floats.Add(out, t.importances())
		used++
	}
	if total := floats.Sum(out); used > 0 && total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}
