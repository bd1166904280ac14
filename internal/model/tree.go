package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/speechassess/cefrgrade/internal/apperr"
)

// node is a split (feature >= 0) or a leaf. Samples with x[feature] <=
// threshold go left.
type node struct {
	feature     int
	threshold   float64
	left, right int
	value       []float64
}

type tree struct {
	nodes    []node
	features int
	// impurity decrease per feature, weighted by node size
	decrease []float64
}

func newTree(features int) *tree {
	return &tree{features: features, decrease: make([]float64, features)}
}

func (t *tree) addLeaf(value []float64) int {
	t.nodes = append(t.nodes, node{feature: -1, value: value})
	return len(t.nodes) - 1
}

func (t *tree) eval(x []float64) []float64 {
	i := 0
	for t.nodes[i].feature >= 0 {
		n := t.nodes[i]
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return t.nodes[i].value
}

// importances normalizes the accumulated impurity decrease to sum to 1.
// A tree that never split has all-zero importances.
func (t *tree) importances() []float64 {
	out := make([]float64, t.features)
	var total float64
	for _, d := range t.decrease {
		total += d
	}
	if total <= 0 {
		return out
	}
	for j, d := range t.decrease {
		out[j] = d / total
	}
	return out
}

func (t *tree) split() bool { return len(t.nodes) > 1 }

// rows copies X into row slices and checks it against y.
func rows(X mat.Matrix, n int) ([][]float64, error) {
	r, c := X.Dims()
	if r == 0 || r != n {
		return nil, apperr.Shape("X rows/y", r, n)
	}
	if c == 0 {
		return nil, fmt.Errorf("model: no feature columns")
	}
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, X)
	}
	return out, nil
}

func checkColumns(X mat.Matrix, want int) {
	if _, c := X.Dims(); c != want {
		panic(fmt.Sprintf("model: predict with %d features, fitted on %d", c, want))
	}
}

// regressionTree grows a CART tree on the squared error criterion, trying
// every feature and every midpoint between distinct sorted values.
type regressionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
}

func (g regressionTree) grow(x [][]float64, y []float64) *tree {
	t := newTree(len(x[0]))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	g.build(t, x, y, idx, 0)
	return t
}

func (g regressionTree) build(t *tree, x [][]float64, y []float64, idx []int, depth int) int {
	n := float64(len(idx))
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	mean := sum / n
	impurity := sumSq/n - mean*mean

	if depth >= g.MaxDepth || len(idx) < g.MinSamplesSplit || len(idx) < 2*g.MinSamplesLeaf || impurity <= 1e-15 {
		return t.addLeaf([]float64{mean})
	}

	bestFeature, bestThreshold, bestProxy := -1, 0.0, math.Inf(-1)
	order := append([]int(nil), idx...)
	for j := 0; j < t.features; j++ {
		sort.SliceStable(order, func(a, b int) bool { return x[order[a]][j] < x[order[b]][j] })
		var leftSum float64
		for k := 0; k < len(order)-1; k++ {
			leftSum += y[order[k]]
			nl := k + 1
			nr := len(order) - nl
			if nl < g.MinSamplesLeaf || nr < g.MinSamplesLeaf {
				continue
			}
			lo, hi := x[order[k]][j], x[order[k+1]][j]
			if hi <= lo {
				continue
			}
			rightSum := sum - leftSum
			proxy := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if proxy > bestProxy {
				bestFeature, bestProxy = j, proxy
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold == hi {
					bestThreshold = lo
				}
			}
		}
	}
	if bestFeature < 0 {
		return t.addLeaf([]float64{mean})
	}

	var left, right []int
	for _, i := range idx {
		if x[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	// weighted decrease in mean squared error
	childImpurity := sumSq - bestProxy
	t.decrease[bestFeature] += (n*impurity - childImpurity) / float64(len(y))

	at := len(t.nodes)
	t.nodes = append(t.nodes, node{feature: bestFeature, threshold: bestThreshold})
	l := g.build(t, x, y, left, depth+1)
	r := g.build(t, x, y, right, depth+1)
	t.nodes[at].left, t.nodes[at].right = l, r
	return at
}

// extraTree grows an extremely randomized classification tree: at each node
// up to maxFeatures non-constant features get one uniform random threshold
// each and the best by Gini decrease wins. Nodes split until pure.
type extraTree struct {
	classes     int
	maxFeatures int
	minSplit    int
	rng         *rand.Rand
}

func (g extraTree) grow(x [][]float64, labels []int) *tree {
	t := newTree(len(x[0]))
	idx := make([]int, len(labels))
	for i := range idx {
		idx[i] = i
	}
	g.build(t, x, labels, idx)
	return t
}

func (g extraTree) counts(labels []int, idx []int) []float64 {
	c := make([]float64, g.classes)
	for _, i := range idx {
		c[labels[i]]++
	}
	return c
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	s := 1.0
	for _, c := range counts {
		p := c / n
		s -= p * p
	}
	return s
}

func (g extraTree) build(t *tree, x [][]float64, labels []int, idx []int) int {
	counts := g.counts(labels, idx)
	n := float64(len(idx))
	impurity := gini(counts, n)
	if len(idx) < g.minSplit || impurity <= 0 {
		return t.addLeaf(counts)
	}

	bestFeature, bestThreshold, bestChild := -1, 0.0, math.Inf(1)
	visited := 0
	for _, j := range g.rng.Perm(t.features) {
		if visited >= g.maxFeatures {
			break
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			lo = math.Min(lo, x[i][j])
			hi = math.Max(hi, x[i][j])
		}
		if hi <= lo {
			continue
		}
		visited++
		thr := lo + g.rng.Float64()*(hi-lo)
		if thr >= hi {
			thr = lo
		}
		left := make([]float64, g.classes)
		var nl float64
		for _, i := range idx {
			if x[i][j] <= thr {
				left[labels[i]]++
				nl++
			}
		}
		right := make([]float64, g.classes)
		for c := range right {
			right[c] = counts[c] - left[c]
		}
		child := nl*gini(left, nl) + (n-nl)*gini(right, n-nl)
		if child < bestChild {
			bestFeature, bestThreshold, bestChild = j, thr, child
		}
	}
	if bestFeature < 0 {
		return t.addLeaf(counts)
	}

	var left, right []int
	for _, i := range idx {
		if x[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	t.decrease[bestFeature] += (n*impurity - bestChild) / float64(len(labels))

	at := len(t.nodes)
	t.nodes = append(t.nodes, node{feature: bestFeature, threshold: bestThreshold})
	l := g.build(t, x, labels, left)
	r := g.build(t, x, labels, right)
	t.nodes[at].left, t.nodes[at].right = l, r
	return at
}
