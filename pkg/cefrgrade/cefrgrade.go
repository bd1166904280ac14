// Package cefrgrade is the public API for embedding the summarizer, the
// grade bucketizer and cross-validation runs in other programs.
package cefrgrade

import (
	"context"

	"github.com/speechassess/cefrgrade/internal/dataset"
	"github.com/speechassess/cefrgrade/internal/experiment"
	"github.com/speechassess/cefrgrade/internal/grade"
	"github.com/speechassess/cefrgrade/internal/model"
	"github.com/speechassess/cefrgrade/internal/stats"
)

type (
	// Record holds the descriptive statistics of one sequence.
	Record = stats.Record
	// Column is one named statistic of a feature row.
	Column = stats.Column
	// Variant selects the transform applied before summarizing.
	Variant = stats.Variant
	// Thresholds are strictly increasing bucket cut points.
	Thresholds = grade.Thresholds
	// Result is everything a cross-validation run produced.
	Result = experiment.Result
	// ProgressEvent reports fold progress during a run.
	ProgressEvent = experiment.ProgressEvent
)

// Summarize computes the statistics record of seq.
func Summarize(seq []float64) Record { return stats.Summarize(seq) }

// SummarizeVariant transforms seq by the named variant, then summarizes it.
func SummarizeVariant(seq []float64, variant string) (Record, error) {
	v, err := stats.ParseVariant(variant)
	if err != nil {
		return Record{}, err
	}
	return stats.Summarize(v.Apply(seq)), nil
}

// PitchColumns are the f0 statistic columns of a pitch track.
func PitchColumns(f0 []float64) []Column { return stats.PitchProfile(f0).Columns() }

// EnergyColumns are the rms statistic columns of an energy track.
func EnergyColumns(rms []float64) []Column { return stats.EnergyProfile(rms).Columns() }

// Bucketize maps a grade to its bucket index under t.
func Bucketize(g float64, t Thresholds) int { return grade.Bucketize(g, t) }

// ResolveThresholds parses explicit cut points, or looks up a preset when
// explicit is blank.
func ResolveThresholds(explicit, preset string) (Thresholds, error) {
	return grade.Resolve(explicit, preset)
}

// ExperimentOptions configure RunExperiment. Zero values take the CLI
// defaults.
type ExperimentOptions struct {
	Part        string
	SkipColumns int
	Intersect   bool
	Regressor   string
	Alpha       float64
	Folds       int
	Seed        uint64
	NoShuffle   bool
	Scale       bool
	Thresholds  Thresholds
	// SelectFeatures keeps only the columns an extra-trees forest ranks at
	// or above the mean importance, refit on every training fold.
	SelectFeatures bool
	OnProgress     func(ProgressEvent)
}

// RunExperiment joins a label file with a feature table (.xlsx or .csv) and
// cross-validates a regressor over it.
func RunExperiment(ctx context.Context, labelPath, featurePath string, opts ExperimentOptions) (*Result, error) {
	labels, err := dataset.LoadLabels(labelPath)
	if err != nil {
		return nil, err
	}
	if opts.SkipColumns == 0 {
		opts.SkipColumns = -1
	}
	table, err := dataset.LoadFeatures(featurePath, dataset.TableOptions{Part: opts.Part, SkipColumns: opts.SkipColumns})
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Join(labels, table, dataset.JoinOptions{Intersect: opts.Intersect})
	if err != nil {
		return nil, err
	}

	eo := experiment.Options{
		Regressor:  opts.Regressor,
		Alpha:      opts.Alpha,
		Folds:      opts.Folds,
		Seed:       opts.Seed,
		NoShuffle:  opts.NoShuffle,
		Scale:      opts.Scale,
		Thresholds: opts.Thresholds,
		OnProgress: opts.OnProgress,

		SelectFeatures: opts.SelectFeatures,
	}
	if eo.Regressor == "" {
		eo.Regressor = "lasso"
	}
	if eo.Alpha == 0 {
		eo.Alpha = model.DefaultAlpha
	}
	if eo.Folds == 0 {
		eo.Folds = 5
	}
	if eo.Seed == 0 {
		eo.Seed = experiment.DefaultSeed
	}
	if len(eo.Thresholds) == 0 {
		eo.Thresholds, _ = grade.Preset(grade.DefaultPreset)
	}
	return experiment.Run(ctx, ds, eo)
}
