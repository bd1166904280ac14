// Package experiment runs k-fold cross-validation of a grade model over a
// joined dataset and collects per-fold reports.
package experiment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/speechassess/cefrgrade/internal/dataset"
	"github.com/speechassess/cefrgrade/internal/grade"
	"github.com/speechassess/cefrgrade/internal/kfold"
	"github.com/speechassess/cefrgrade/internal/model"
	"github.com/speechassess/cefrgrade/internal/report"
)

// DefaultSeed keeps fold assignment stable across runs.
const DefaultSeed = 66

// Options configures a cross-validation run.
type Options struct {
	Regressor  string
	Alpha      float64
	Folds      int
	Seed       uint64
	NoShuffle  bool
	Scale      bool
	Thresholds grade.Thresholds

	// SelectFeatures keeps, per fold, the columns a randomized tree forest
	// finds important for the SelectionThresholds buckets of the training
	// grades. SelectionThresholds defaults to Thresholds.
	SelectFeatures      bool
	SelectionThresholds grade.Thresholds

	// Annotators maps an annotator name to its speaker buckets. Predicted
	// buckets are compared against each of them after the run.
	Annotators map[string]map[string]int

	OnProgress ProgressCallback
}

// Kinds of FoldOutcome.Weights.
const (
	Coefficients = "coefficients"
	Importances  = "importances"
)

// FoldOutcome is the trained model and report of one fold.
type FoldOutcome struct {
	Fold   kfold.Fold
	Report report.FoldResult
	// Weights are the non-zero coefficients of a linear model or the
	// importances of a tree ensemble, ranked by value.
	Weights     []model.Weight
	WeightKind  string
	Intercept   float64
	Predictions []float64
	Targets     []float64
	// Selected lists the features kept by feature selection, ranked by
	// importance. Empty when selection is off.
	Selected []model.RankedFeature
}

// Result is everything a run produced.
type Result struct {
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Regressor   string
	Alpha       float64
	Thresholds  grade.Thresholds
	Selection   bool // per-fold feature selection ran
	Features    []string
	Samples     int
	Folds       []FoldOutcome
	Accumulator *report.Accumulator
	Summary     report.Summary
	Agreements  []Agreement
}

// Run cross-validates a fresh regressor per fold. Cancellation is checked
// between folds; a cancelled run returns the folds completed so far along
// with ctx.Err().
func Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	progress := opts.OnProgress
	if progress == nil {
		progress = func(ProgressEvent) {}
	}
	if opts.Folds == 0 {
		opts.Folds = 5
	}
	if len(opts.Thresholds) == 0 {
		opts.Thresholds, _ = grade.Preset(grade.DefaultPreset)
	}
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if len(opts.SelectionThresholds) == 0 {
		opts.SelectionThresholds = opts.Thresholds
	}
	if err := opts.SelectionThresholds.Validate(); err != nil {
		return nil, err
	}
	proto, err := model.New(opts.Regressor, opts.Alpha)
	if err != nil {
		return nil, err
	}

	folds, err := kfold.Split(ds.Len(), opts.Folds, opts.Seed, !opts.NoShuffle)
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:       uuid.New().String(),
		StartedAt:   time.Now(),
		Alpha:       opts.Alpha,
		Thresholds:  opts.Thresholds,
		Selection:   opts.SelectFeatures,
		Features:    ds.Features,
		Samples:     ds.Len(),
		Accumulator: report.NewAccumulator(kfold.IDs(len(folds))...),
	}
	reporter := report.NewReporter()
	if _, ok := proto.(model.Classifier); ok {
		reporter = report.NewBucketReporter()
	}
	logf("", "run %s: %d samples, %d features, %d folds", res.RunID, ds.Len(), len(ds.Features), len(folds))

	for i, f := range folds {
		select {
		case <-ctx.Done():
			res.finish()
			return res, ctx.Err()
		default:
		}

		progress(ProgressEvent{Type: EventFoldStart, Fold: f.ID(), Index: i, Total: len(folds)})

		out, err := runFold(ds, f, opts, reporter, res.Accumulator)
		if err != nil {
			progress(ProgressEvent{Type: EventError, Fold: f.ID(), Error: err, Message: "fold failed"})
			return nil, fmt.Errorf("%s: %w", f.ID(), err)
		}
		res.Regressor = out.regressor
		res.Folds = append(res.Folds, out.FoldOutcome)

		progress(ProgressEvent{Type: EventFoldComplete, Fold: f.ID(), Index: i, Total: len(folds), Accuracy: out.Report.Accuracy()})
	}

	res.finish()
	if len(opts.Annotators) > 0 {
		res.Agreements = Agreements(res.Accumulator, opts.Annotators, opts.Thresholds.Buckets())
	}
	logf("", "run %s: mean accuracy %.4f", res.RunID, res.Summary.MeanAccuracy)
	return res, nil
}

func (r *Result) finish() {
	r.Duration = time.Since(r.StartedAt)
	r.Summary = r.Accumulator.Summary()
}

type foldRun struct {
	FoldOutcome
	regressor string
}

func runFold(ds *dataset.Dataset, f kfold.Fold, opts Options, reporter *report.Reporter, acc *report.Accumulator) (foldRun, error) {
	xTrain, yTrain, _ := ds.Subset(f.Train)
	xTest, yTest, ids := ds.Subset(f.Test)

	var trainX, testX mat.Matrix = xTrain, xTest
	features := ds.Features
	var selected []model.RankedFeature
	if opts.SelectFeatures {
		sel, err := model.SelectFeatures(xTrain, grade.BucketizeAll(yTrain, opts.SelectionThresholds), model.SelectOptions{Seed: opts.Seed})
		if err != nil {
			return foldRun{}, fmt.Errorf("select features: %w", err)
		}
		if trainX, err = sel.Transform(xTrain); err != nil {
			return foldRun{}, err
		}
		if testX, err = sel.Transform(xTest); err != nil {
			return foldRun{}, err
		}
		features = sel.Names(ds.Features)
		selected = sel.Ranked(ds.Features)
		logf(f.ID(), "selected %d of %d features (importance >= %.4f)", len(features), len(ds.Features), sel.Threshold)
		for _, r := range selected {
			logf(f.ID(), "  %-24s %.6f ± %.6f", r.Feature, r.Importance, r.Std)
		}
	}
	if opts.Scale {
		var s model.MinMaxScaler
		s.Fit(trainX)
		var err error
		if trainX, err = s.Transform(trainX); err != nil {
			return foldRun{}, err
		}
		if testX, err = s.Transform(testX); err != nil {
			return foldRun{}, err
		}
	}

	reg, err := model.New(opts.Regressor, opts.Alpha)
	if err != nil {
		return foldRun{}, err
	}
	target := yTrain
	if _, ok := reg.(model.Classifier); ok {
		target = make([]float64, len(yTrain))
		for i, b := range grade.BucketizeAll(yTrain, opts.Thresholds) {
			target[i] = float64(b)
		}
	}
	if err := reg.Fit(trainX, target); err != nil {
		return foldRun{}, fmt.Errorf("fit %s: %w", reg.Name(), err)
	}

	var weights []model.Weight
	var intercept float64
	var kind string
	switch m := reg.(type) {
	case model.LinearModel:
		weights = model.Importance(features, m.Coefficients())
		intercept = m.Intercept()
		kind = Coefficients
		logf(f.ID(), "%s: %d of %d coefficients non-zero", reg.Name(), len(weights), len(features))
	case model.Importancer:
		weights = model.Importance(features, m.FeatureImportances())
		kind = Importances
		logf(f.ID(), "%s: %d of %d features used", reg.Name(), len(weights), len(features))
	}
	for _, w := range weights {
		logf(f.ID(), "  %-24s %+.6f", w.Feature, w.Coef)
	}

	pred := reg.Predict(testX)
	rep, err := reporter.Report(yTest, pred, ids, opts.Thresholds, acc, f.ID())
	if err != nil {
		return foldRun{}, err
	}
	return foldRun{
		FoldOutcome: FoldOutcome{
			Fold:        f,
			Report:      rep,
			Weights:     weights,
			WeightKind:  kind,
			Intercept:   intercept,
			Predictions: pred,
			Targets:     yTest,
			Selected:    selected,
		},
		regressor: reg.Name(),
	}, nil
}

// Names returns the annotator names in sorted order.
func Names(annotators map[string]map[string]int) []string {
	out := make([]string, 0, len(annotators))
	for k := range annotators {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
