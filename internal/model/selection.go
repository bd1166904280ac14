package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SelectOptions configures SelectFeatures. Zero Trees means 50.
type SelectOptions struct {
	Trees int
	Seed  uint64
}

// Selection is the outcome of impurity-based feature selection.
type Selection struct {
	// Support marks the kept columns.
	Support []bool
	// Importances is the forest mean decrease in impurity per column, summing to 1.
	Importances []float64
	// Std is the spread of the per-tree importances.
	Std       []float64
	Threshold float64
}

// SelectFeatures fits a forest of extremely randomized trees on the bucket
// labels and keeps every column whose importance is at least the mean
// importance. Each tree sees the whole sample and tries sqrt(features)
// random thresholds per node.
func SelectFeatures(X mat.Matrix, labels []int, opts SelectOptions) (Selection, error) {
	x, err := rows(X, len(labels))
	if err != nil {
		return Selection{}, err
	}
	trees := opts.Trees
	if trees <= 0 {
		trees = 50
	}
	classes := 0
	for _, l := range labels {
		if l < 0 {
			return Selection{}, fmt.Errorf("select features: negative bucket %d", l)
		}
		classes = max(classes, l+1)
	}

	p := len(x[0])
	grower := extraTree{
		classes:     classes,
		maxFeatures: max(1, int(math.Sqrt(float64(p)))),
		minSplit:    2,
		rng:         rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5851f42d4c957f2d)),
	}
	perTree := make([][]float64, trees)
	for i := range perTree {
		perTree[i] = grower.grow(x, labels).importances()
	}

	sel := Selection{
		Support:     make([]bool, p),
		Importances: make([]float64, p),
		Std:         make([]float64, p),
	}
	column := make([]float64, trees)
	for j := 0; j < p; j++ {
		for i := range perTree {
			column[i] = perTree[i][j]
		}
		sel.Importances[j], sel.Std[j] = stat.PopMeanStdDev(column, nil)
	}
	var total float64
	for _, v := range sel.Importances {
		total += v
	}
	if total > 0 {
		for j := range sel.Importances {
			sel.Importances[j] /= total
		}
	}
	sel.Threshold = stat.Mean(sel.Importances, nil)
	for j, v := range sel.Importances {
		sel.Support[j] = v >= sel.Threshold
	}
	return sel, nil
}

// Indices returns the kept column indices in column order.
func (s Selection) Indices() []int {
	var out []int
	for j, ok := range s.Support {
		if ok {
			out = append(out, j)
		}
	}
	return out
}

// Names returns the kept entries of features.
func (s Selection) Names(features []string) []string {
	var out []string
	for _, j := range s.Indices() {
		if j < len(features) {
			out = append(out, features[j])
		}
	}
	return out
}

// Transform returns the kept columns of X.
func (s Selection) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != len(s.Support) {
		return nil, fmt.Errorf("select features: %d columns, fitted on %d", c, len(s.Support))
	}
	idx := s.Indices()
	out := mat.NewDense(r, len(idx), nil)
	for i := 0; i < r; i++ {
		for k, j := range idx {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out, nil
}

// RankedFeature is a kept feature with its forest importance.
type RankedFeature struct {
	Feature    string
	Importance float64
	Std        float64
}

// Ranked lists the kept features by descending importance.
func (s Selection) Ranked(features []string) []RankedFeature {
	var out []RankedFeature
	for _, j := range s.Indices() {
		if j >= len(features) {
			continue
		}
		out = append(out, RankedFeature{Feature: features[j], Importance: s.Importances[j], Std: s.Std[j]})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
