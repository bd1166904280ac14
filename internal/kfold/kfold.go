// Package kfold splits sample indices into cross-validation folds.
package kfold

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Fold is one train/test split of the indices 0..n-1.
type Fold struct {
	// Number is 1-based.
	Number int
	Train  []int
	Test   []int
}

// ID is the fold name used in reports ("Fold1", "Fold2", ...).
func (f Fold) ID() string { return "Fold" + strconv.Itoa(f.Number) }

// Split partitions 0..n-1 into k contiguous test blocks, after an optional
// seeded shuffle. The first n%k folds hold one extra sample. Every index is
// in exactly one test block.
func Split(n, k int, seed uint64, shuffle bool) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("kfold: need at least 2 folds, got %d", k)
	}
	if k > n {
		return nil, fmt.Errorf("kfold: cannot split %d samples into %d folds", n, k)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		r.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	folds := make([]Fold, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		test := append([]int(nil), order[start:start+size]...)
		train := make([]int, 0, n-size)
		train = append(train, order[:start]...)
		train = append(train, order[start+size:]...)
		folds[i] = Fold{Number: i + 1, Train: train, Test: test}
		start += size
	}
	return folds, nil
}

// IDs returns the fold names for k folds.
func IDs(k int) []string {
	out := make([]string, k)
	for i := range out {
		out[i] = Fold{Number: i + 1}.ID()
	}
	return out
}
