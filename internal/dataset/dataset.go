// Package dataset loads annotated grades and acoustic feature tables and
// joins them into a design matrix for cross-validation.
package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/speechassess/cefrgrade/internal/apperr"
)

// Dataset is a joined design matrix. Row i of X belongs to IDs[i] and is
// labelled Y[i].
type Dataset struct {
	Features []string
	IDs      []string
	X        *mat.Dense
	Y        []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Y) }

// JoinOptions control how labels and features are joined.
type JoinOptions struct {
	// Intersect drops labelled speakers without features instead of failing.
	Intersect bool
}

// Join builds a dataset over the labelled speakers in label-file order.
func Join(labels Labels, table *FeatureTable, opts JoinOptions) (*Dataset, error) {
	d := &Dataset{Features: append([]string(nil), table.Columns...)}
	var data []float64
	for _, id := range labels.IDs {
		row, ok := table.Lookup(id)
		if !ok {
			if opts.Intersect {
				logf("dropping speaker %s: no feature row", id)
				continue
			}
			return nil, fmt.Errorf("speaker %s: %w", id, apperr.ErrMissingSpeaker)
		}
		d.IDs = append(d.IDs, id)
		d.Y = append(d.Y, labels.Grades[id])
		data = append(data, row.Values...)
	}
	if len(d.IDs) == 0 {
		return nil, fmt.Errorf("no labelled speaker has features: %w", apperr.ErrMissingSpeaker)
	}
	if len(d.Features) == 0 {
		return nil, fmt.Errorf("feature table has no usable feature columns")
	}
	d.X = mat.NewDense(len(d.IDs), len(d.Features), data)
	logf("joined %d speakers x %d features", len(d.IDs), len(d.Features))
	return d, nil
}

// Subset returns the rows at idx as a new matrix with their labels and ids.
func (d *Dataset) Subset(idx []int) (*mat.Dense, []float64, []string) {
	_, c := d.X.Dims()
	x := mat.NewDense(len(idx), c, nil)
	y := make([]float64, len(idx))
	ids := make([]string, len(idx))
	for i, j := range idx {
		x.SetRow(i, d.X.RawRowView(j))
		y[i] = d.Y[j]
		ids[i] = d.IDs[j]
	}
	return x, y, ids
}
