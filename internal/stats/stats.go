// Package stats summarizes per-frame acoustic tracks (pitch, energy) into
// descriptive statistics and provides the normalizations applied before
// summarizing.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// stdFloor keeps z-score normalization finite on constant sequences.
const stdFloor = 1.0e-20

// Kind enumerates the statistics computed for every sequence.
type Kind int

const (
	Count Kind = iota
	Mean
	Std
	Median
	MAD
	Sum
	Max
	Min
)

var kindNames = [...]string{
	Count:  "number",
	Mean:   "mean",
	Std:    "std",
	Median: "median",
	MAD:    "mad",
	Sum:    "summ",
	Max:    "max",
	Min:    "min",
}

// Kinds returns all statistic kinds in column order.
func Kinds() []Kind {
	return []Kind{Count, Mean, Std, Median, MAD, Sum, Max, Min}
}

// String returns the column suffix used in feature tables.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Record holds the descriptive statistics of one sequence.
// A zero Record describes the empty sequence.
type Record struct {
	Count  int
	Mean   float64
	Std    float64
	Median float64
	MAD    float64
	Sum    float64
	Max    float64
	Min    float64
}

// Value returns the statistic of kind k.
func (r Record) Value(k Kind) float64 {
	switch k {
	case Count:
		return float64(r.Count)
	case Mean:
		return r.Mean
	case Std:
		return r.Std
	case Median:
		return r.Median
	case MAD:
		return r.MAD
	case Sum:
		return r.Sum
	case Max:
		return r.Max
	case Min:
		return r.Min
	}
	return math.NaN()
}

// Column is one named scalar of a flattened record.
type Column struct {
	Name  string
	Value float64
}

// Columns flattens r into prefix-named columns in Kinds() order.
func (r Record) Columns(prefix string) []Column {
	out := make([]Column, 0, len(kindNames))
	for _, k := range Kinds() {
		out = append(out, Column{Name: prefix + k.String(), Value: r.Value(k)})
	}
	return out
}

// Summarize computes count, mean, population std, median, mean absolute
// deviation, sum, max and min of seq. An empty seq yields the zero Record.
// A NaN anywhere in seq makes every value field NaN.
func Summarize(seq []float64) Record {
	n := len(seq)
	if n == 0 {
		return Record{}
	}
	if floats.HasNaN(seq) {
		nan := math.NaN()
		return Record{Count: n, Mean: nan, Std: nan, Median: nan, MAD: nan, Sum: nan, Max: nan, Min: nan}
	}
	mean, std := stat.PopMeanStdDev(seq, nil)

	var dev float64
	for _, x := range seq {
		dev += math.Abs(x - mean)
	}

	return Record{
		Count:  n,
		Mean:   mean,
		Std:    std,
		Median: median(seq),
		MAD:    dev / float64(n),
		Sum:    floats.Sum(seq),
		Max:    floats.Max(seq),
		Min:    floats.Min(seq),
	}
}

// median averages the two middle values for even lengths. seq must be non-empty.
func median(seq []float64) float64 {
	sorted := append([]float64(nil), seq...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// ZScore returns (x-mean)/max(std, 1e-20) for every element.
func ZScore(seq []float64) []float64 {
	out := make([]float64, len(seq))
	if len(seq) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(seq, nil)
	std = math.Max(std, stdFloor)
	for i, x := range seq {
		out[i] = (x - mean) / std
	}
	return out
}

// MinMax returns (x-min)/(max-min) for every element. A constant sequence
// divides by zero and yields NaN; the caller decides whether that matters.
func MinMax(seq []float64) []float64 {
	out := make([]float64, len(seq))
	if len(seq) == 0 {
		return out
	}
	lo, hi := floats.Min(seq), floats.Max(seq)
	for i, x := range seq {
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}

// Log returns ln(x) for every element. Zero maps to -Inf and negative values
// to NaN.
func Log(seq []float64) []float64 {
	out := make([]float64, len(seq))
	for i, x := range seq {
		out[i] = math.Log(x)
	}
	return out
}

// NonZero drops zero entries (unvoiced pitch frames).
func NonZero(seq []float64) []float64 {
	out := make([]float64, 0, len(seq))
	for _, x := range seq {
		if x != 0 {
			out = append(out, x)
		}
	}
	return out
}

// Variant names the transformation applied to a sequence before summarizing.
type Variant int

const (
	Raw Variant = iota
	Filtered
	ZScoreNorm
	MinMaxNorm
	LogNorm
)

var variantNames = [...]string{
	Raw:        "raw",
	Filtered:   "filtered",
	ZScoreNorm: "zscore",
	MinMaxNorm: "minmax",
	LogNorm:    "log",
}

func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantNames) {
		return fmt.Sprintf("Variant(%d)", int(v))
	}
	return variantNames[v]
}

// ParseVariant accepts the names returned by Variant.String.
func ParseVariant(s string) (Variant, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range variantNames {
		if name == s {
			return Variant(i), nil
		}
	}
	return Raw, fmt.Errorf("unknown variant %q (expected raw|filtered|zscore|minmax|log)", s)
}

// Apply transforms seq according to v. Raw returns a copy.
func (v Variant) Apply(seq []float64) []float64 {
	switch v {
	case Filtered:
		return NonZero(seq)
	case ZScoreNorm:
		return ZScore(seq)
	case MinMaxNorm:
		return MinMax(seq)
	case LogNorm:
		return Log(seq)
	default:
		return append([]float64(nil), seq...)
	}
}
