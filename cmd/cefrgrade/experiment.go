package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/speechassess/cefrgrade/internal/apperr"
	"github.com/speechassess/cefrgrade/internal/dataset"
	"github.com/speechassess/cefrgrade/internal/experiment"
	"github.com/speechassess/cefrgrade/internal/grade"
	"github.com/speechassess/cefrgrade/internal/interactive"
	bomio "github.com/speechassess/cefrgrade/internal/io"
	"github.com/speechassess/cefrgrade/internal/kfold"
	"github.com/speechassess/cefrgrade/internal/model"
	"github.com/speechassess/cefrgrade/internal/modelcard"
	"github.com/speechassess/cefrgrade/internal/report"
	"github.com/speechassess/cefrgrade/internal/store"
	"github.com/speechassess/cefrgrade/internal/ui"
)

var (
	expDataDir      string
	expModelName    string
	expPart         string
	expAspect       string
	expLabels       string
	expFeatures     string
	expSkipColumns  int
	expIntersect    bool
	expRegressor    string
	expAlpha        float64
	expFolds        int
	expSeed         uint64
	expNoShuffle    bool
	expScale        bool
	expSelect       bool
	expSelectBins   string
	expPreset       string
	expThresholds   string
	expExpRoot      string
	expFormat       string
	expLedger       string
	expNoLedger     bool
	expBOM          bool
	expBOMFormat    string
	expAnnotators   []string
	expLevels       string
	expInteractive  bool
	expShowFolds    bool
	expPlainSummary bool
	expLogLevel     string
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Cross-validate a grade model on acoustic features",
	Long: "Joins the grader labels <data-dir>/grader.spk2p<part>s<aspect> with the feature table " +
		"<data-dir>/<model-name>/<model-name>-feats.xlsx, runs k-fold cross-validation and writes " +
		"per-fold predictions, kfold_detail and metric_report tables under <exp-root>/<aspect name>. " +
		"With --select-features each fold first keeps the features a randomized tree forest ranks at or above " +
		"mean importance and writes them to <fold>/feature_importances.txt. The logistic model predicts buckets directly.",
	RunE: runExperiment,
}

// experimentConfig is the resolved flag and config state of one run.
type experimentConfig struct {
	dataDir     string
	modelName   string
	part        string
	aspect      string
	labelPath   string
	featurePath string
	skipColumns int
	intersect   bool
	settings    interactive.Settings
	seed        uint64
	noShuffle   bool
	selectBins  string
	expRoot     string
	ledger      string
	bom         bool
	bomFormat   string
	annotators  []string
	levels      map[string]int
}

func loadExperimentConfig() (experimentConfig, error) {
	c := experimentConfig{
		dataDir:     viper.GetString("experiment.data-dir"),
		modelName:   strings.TrimSpace(viper.GetString("experiment.model-name")),
		part:        strings.TrimSpace(viper.GetString("experiment.part")),
		labelPath:   viper.GetString("experiment.labels"),
		featurePath: viper.GetString("experiment.features"),
		skipColumns: viper.GetInt("experiment.skip-columns"),
		intersect:   viper.GetBool("experiment.intersect"),
		seed:        viper.GetUint64("experiment.seed"),
		noShuffle:   viper.GetBool("experiment.no-shuffle"),
		selectBins:  viper.GetString("experiment.select-thresholds"),
		expRoot:     viper.GetString("experiment.exp-root"),
		ledger:      viper.GetString("experiment.ledger"),
		bom:         viper.GetBool("experiment.bom"),
		bomFormat:   viper.GetString("experiment.bom-format"),
		annotators:  viper.GetStringSlice("experiment.annotators"),
		settings: interactive.Settings{
			Regressor:  strings.ToLower(strings.TrimSpace(viper.GetString("experiment.regressor"))),
			Alpha:      viper.GetFloat64("experiment.alpha"),
			Folds:      viper.GetInt("experiment.folds"),
			Aspect:     strings.TrimSpace(viper.GetString("experiment.aspect")),
			Preset:     viper.GetString("experiment.preset"),
			Thresholds: viper.GetString("experiment.thresholds"),
			Scale:      viper.GetBool("experiment.scale"),
			Format:     strings.ToLower(strings.TrimSpace(viper.GetString("experiment.format"))),

			SelectFeatures: viper.GetBool("experiment.select-features"),
		},
	}
	if viper.GetBool("experiment.no-ledger") {
		c.ledger = ""
	} else if c.ledger == "" {
		c.ledger = filepath.Join(c.expRoot, "runs.db")
	}
	if c.settings.Format == "" {
		c.settings.Format = "xlsx"
	}
	if c.part == "" {
		return c, apperr.User("--part is required")
	}
	if c.labelPath == "" || c.featurePath == "" {
		if c.dataDir == "" {
			return c, apperr.User("--data-dir is required unless both --labels and --features are given")
		}
		if c.featurePath == "" && c.modelName == "" {
			return c, apperr.User("--model-name is required to locate the feature table")
		}
	}
	levels := viper.GetString("experiment.levels")
	if strings.TrimSpace(levels) == "" {
		c.levels = dataset.DefaultLevels
	} else {
		m, err := dataset.ParseLevels(levels)
		if err != nil {
			return c, apperr.User(err.Error())
		}
		c.levels = m
	}
	return c, nil
}

// validate checks the settings the interactive form may have changed and
// fills in the derived paths. It returns the report thresholds and the
// feature selection thresholds.
func (c *experimentConfig) validate() (grade.Thresholds, grade.Thresholds, error) {
	name, err := dataset.AspectName(c.settings.Aspect)
	if err != nil {
		return nil, nil, apperr.User(err.Error())
	}
	c.aspect = name
	if _, err := model.New(c.settings.Regressor, c.settings.Alpha); err != nil {
		return nil, nil, err
	}
	if c.settings.Folds < 2 {
		return nil, nil, apperr.Userf("--folds must be at least 2, got %d", c.settings.Folds)
	}
	switch c.settings.Format {
	case "xlsx", "csv":
	default:
		return nil, nil, apperr.Userf("invalid --format %q (expected xlsx|csv)", c.settings.Format)
	}
	t, err := grade.Resolve(c.settings.Thresholds, c.settings.Preset)
	if err != nil {
		return nil, nil, apperr.User(err.Error())
	}
	sel, err := selectionThresholds(c.selectBins, t)
	if err != nil {
		return nil, nil, apperr.User(err.Error())
	}
	if c.labelPath == "" {
		c.labelPath = dataset.LabelPath(c.dataDir, c.part, c.settings.Aspect)
	}
	if c.featurePath == "" {
		c.featurePath = dataset.FeaturePath(c.dataDir, c.modelName)
	}
	return t, sel, nil
}

// selectionThresholds reads --select-thresholds as a preset name or cut
// points. Empty means the report thresholds.
func selectionThresholds(v string, report grade.Thresholds) (grade.Thresholds, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return report, nil
	}
	if t, ok := grade.Preset(v); ok {
		return t, nil
	}
	return grade.ParseThresholds(v)
}

// annotatorName is the last extension of an annotator file, e.g. "phd1" for
// grader.spk2p3s2.phd1.
func annotatorName(path string) string {
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		return ext
	}
	return filepath.Base(path)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	level, err := resolveLogLevel("experiment")
	if err != nil {
		return err
	}
	quiet := level == "quiet"
	wireLogging(level, cmd.ErrOrStderr())

	cfg, err := loadExperimentConfig()
	if err != nil {
		return err
	}
	if viper.GetBool("experiment.interactive") {
		if err := interactive.Configure(&cfg.settings); err != nil {
			return err
		}
	}
	thresholds, selectThresholds, err := cfg.validate()
	if err != nil {
		return err
	}

	labels, err := dataset.LoadLabels(cfg.labelPath)
	if err != nil {
		return err
	}
	table, err := dataset.LoadFeatures(cfg.featurePath, dataset.TableOptions{Part: cfg.part, SkipColumns: cfg.skipColumns})
	if err != nil {
		return err
	}
	ds, err := dataset.Join(labels, table, dataset.JoinOptions{Intersect: cfg.intersect})
	if err != nil {
		if errors.Is(err, apperr.ErrMissingSpeaker) {
			return fmt.Errorf("%w (use --intersect to drop unmatched speakers)", err)
		}
		return err
	}

	annotators := make(map[string]map[string]int, len(cfg.annotators))
	for _, path := range cfg.annotators {
		if strings.TrimSpace(path) == "" {
			continue
		}
		levels, err := dataset.LoadAnnotator(path, cfg.levels)
		if err != nil {
			return err
		}
		annotators[annotatorName(path)] = levels
	}

	expUI := ui.NewExperimentUI(cmd.OutOrStdout(), quiet)
	folds := cfg.settings.Folds
	if folds > ds.Len() {
		return apperr.Userf("--folds %d exceeds the %d joined speakers", folds, ds.Len())
	}
	expUI.StartWorkflow(kfold.IDs(folds))

	opts := experiment.Options{
		Regressor:  cfg.settings.Regressor,
		Alpha:      cfg.settings.Alpha,
		Folds:      folds,
		Seed:       cfg.seed,
		NoShuffle:  cfg.noShuffle,
		Scale:      cfg.settings.Scale,
		Thresholds: thresholds,
		Annotators: annotators,

		SelectFeatures:      cfg.settings.SelectFeatures,
		SelectionThresholds: selectThresholds,
		OnProgress: func(evt experiment.ProgressEvent) {
			switch evt.Type {
			case experiment.EventFoldStart:
				expUI.StartFold(evt.Index, fmt.Sprintf("%d/%d", evt.Index+1, evt.Total))
			case experiment.EventFoldComplete:
				expUI.CompleteFold(evt.Index, evt.Accuracy)
			case experiment.EventError:
				err := evt.Error
				if err == nil {
					err = errors.New(evt.Message)
				}
				expUI.FailFold(evt.Index, err)
			}
		},
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := experiment.Run(ctx, ds, opts)
	if err != nil {
		expUI.FinishWorkflow()
		return err
	}

	outDir := filepath.Join(cfg.expRoot, cfg.aspect)
	expUI.StartWriting(outDir)
	outputs, err := writeExperimentOutputs(ctx, res, cfg, outDir)
	if err != nil {
		expUI.FinishWorkflow()
		return err
	}
	expUI.CompleteWriting(len(outputs))
	expUI.FinishWorkflow()

	if viper.GetBool("experiment.plain-summary") {
		fmt.Fprintln(cmd.OutOrStdout(), report.FormatSummary(res.Summary))
		return nil
	}
	if quiet {
		expUI.PrintSimpleSummary(summaryView(res, outputs))
		return nil
	}
	if viper.GetBool("experiment.show-folds") {
		for _, f := range res.Folds {
			expUI.PrintFold(foldView(f))
		}
	}
	expUI.PrintSummary(summaryView(res, outputs))
	return nil
}

func writeExperimentOutputs(ctx context.Context, res *experiment.Result, cfg experimentConfig, outDir string) ([]string, error) {
	var outputs []string
	for _, f := range res.Folds {
		dir := filepath.Join(outDir, strconv.Itoa(f.Fold.Number))
		path, err := bomio.WritePredictions(dir, f.Predictions, f.Targets)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
		if len(f.Selected) > 0 {
			if path, err = bomio.WriteImportances(dir, f.Selected); err != nil {
				return nil, err
			}
			outputs = append(outputs, path)
		}
	}

	ext := "." + cfg.settings.Format
	detail := filepath.Join(outDir, "kfold_detail"+ext)
	if err := bomio.WriteReport(detail, cfg.settings.Format, res.Accumulator, res.Summary); err != nil {
		return nil, err
	}
	metricPath := filepath.Join(outDir, "metric_report"+ext)
	if err := bomio.WriteMetricReport(metricPath, cfg.settings.Format, res.Summary); err != nil {
		return nil, err
	}
	outputs = append(outputs, detail, metricPath)

	if cfg.bom {
		bom, err := modelcard.Build(res, modelcard.Meta{
			AcousticModel: cfg.modelName,
			Aspect:        cfg.aspect,
			Part:          cfg.part,
			FeatureFile:   cfg.featurePath,
			LabelFile:     cfg.labelPath,
		})
		if err != nil {
			return nil, err
		}
		format := cfg.bomFormat
		if format == "" || format == "auto" {
			format = "json"
		}
		path := filepath.Join(outDir, "model_card."+format)
		if err := bomio.WriteBOM(bom, path, format, "1.6"); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}

	if cfg.ledger != "" {
		if err := recordRun(ctx, res, cfg, outDir); err != nil {
			return nil, err
		}
		outputs = append(outputs, cfg.ledger)
	}
	return outputs, nil
}

func recordRun(ctx context.Context, res *experiment.Result, cfg experimentConfig, outDir string) error {
	if err := ensureDir(filepath.Dir(cfg.ledger)); err != nil {
		return err
	}
	s, err := store.Open(cfg.ledger)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Record(ctx, store.FromResult(res, cfg.modelName, cfg.aspect, cfg.part, outDir))
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func foldView(f experiment.FoldOutcome) ui.FoldView {
	v := ui.FoldView{
		Fold:     f.Report.Fold,
		MSE:      f.Report.Regression.MSE,
		RMSE:     f.Report.Regression.RMSE,
		Pearson:  f.Report.Regression.Pearson,
		Accuracy: f.Report.Accuracy(),
		MacroF1:  f.Report.Report.Macro.F1,
		Report:   f.Report.Report.String(),
		Matrix:   f.Report.Confusion.String(),
	}
	for _, r := range f.Report.Rows {
		v.Rows = append(v.Rows, ui.FoldRow{
			SpeakerID:  r.SpeakerID,
			TrueGrade:  r.TrueGrade,
			TrueBucket: r.TrueBucket,
			PredGrade:  r.PredGrade,
			PredBucket: r.PredBucket,
			Diff:       r.Diff,
		})
	}
	v.WeightLabel = "Coefficients"
	if f.WeightKind == experiment.Importances {
		v.WeightLabel = "Importances"
	}
	for _, w := range f.Weights {
		v.Weights = append(v.Weights, ui.WeightView{Feature: w.Feature, Value: w.Coef})
	}
	for _, r := range f.Selected {
		v.Selected = append(v.Selected, ui.WeightView{Feature: r.Feature, Value: r.Importance})
	}
	return v
}

func summaryView(res *experiment.Result, outputs []string) ui.SummaryView {
	v := ui.SummaryView{
		RunID:      res.RunID,
		Regressor:  res.Regressor,
		Thresholds: res.Thresholds.String(),
		Samples:    res.Samples,
		Features:   len(res.Features),
		Accuracy:   res.Summary.MeanAccuracy,
		MacroF1:    res.Summary.MeanMacroF1,
		WeightedF1: res.Summary.MeanWeightedF1,
		MSE:        res.Summary.MeanMSE,
		Pearson:    res.Summary.MeanPearson,
		Duration:   res.Duration,
		Outputs:    outputs,
	}
	for _, r := range res.Summary.Rows {
		v.Folds = append(v.Folds, ui.SummaryFold{Fold: r.Fold, Accuracy: r.Accuracy, MacroF1: r.MacroF1, WeightedF1: r.WeightedF1})
	}
	for _, a := range res.Agreements {
		v.Agreements = append(v.Agreements, ui.AgreementView{
			Annotator:  a.Annotator,
			Speakers:   a.Speakers,
			LabelKappa: a.LabelKappa,
			PredKappa:  a.PredKappa,
		})
	}
	return v
}

func init() {
	f := experimentCmd.Flags()
	f.StringVar(&expDataDir, "data-dir", "", "Directory holding grader label files and <model-name>/ feature tables")
	f.StringVar(&expModelName, "model-name", "", "Acoustic model whose feature table is used")
	f.StringVar(&expPart, "part", "", "Test part (e.g. 3)")
	f.StringVar(&expAspect, "aspect", "2", "Aspect: 1 (content), 2 (pronunciation), 3 (vocabulary)")
	f.StringVar(&expLabels, "labels", "", "Label file path (overrides the data-dir layout)")
	f.StringVar(&expFeatures, "features", "", "Feature table path, .xlsx or .csv (overrides the data-dir layout)")
	f.IntVar(&expSkipColumns, "skip-columns", -1, "Leading metadata columns of the feature table (default 6)")
	f.BoolVar(&expIntersect, "intersect", false, "Drop labelled speakers that have no feature row")
	f.StringVar(&expRegressor, "regressor", "lasso", "Model: "+strings.Join(model.Names(), "|"))
	f.Float64Var(&expAlpha, "alpha", model.DefaultAlpha, "Regularization strength of lasso and linear")
	f.IntVar(&expFolds, "folds", 5, "Number of cross-validation folds")
	f.Uint64Var(&expSeed, "seed", experiment.DefaultSeed, "Shuffle seed")
	f.BoolVar(&expNoShuffle, "no-shuffle", false, "Use contiguous folds in label-file order")
	f.BoolVar(&expScale, "scale", false, "Min-max scale features on each training fold")
	f.BoolVar(&expSelect, "select-features", false, "Keep, per fold, the features a randomized tree forest ranks at or above mean importance")
	f.StringVar(&expSelectBins, "select-thresholds", "", "Buckets the selection forest is trained on: a preset name or cut points (default: the report thresholds)")
	f.StringVar(&expPreset, "preset", grade.DefaultPreset, "Threshold preset: "+strings.Join(grade.PresetNames(), "|"))
	f.StringVar(&expThresholds, "thresholds", "", "Comma separated cut points (overrides --preset)")
	f.StringVar(&expExpRoot, "exp-root", "exp", "Root directory for experiment outputs")
	f.StringVarP(&expFormat, "format", "f", "xlsx", "Report format: xlsx|csv")
	f.StringVar(&expLedger, "ledger", "", "SQLite run ledger (default <exp-root>/runs.db)")
	f.BoolVar(&expNoLedger, "no-ledger", false, "Do not record the run in the ledger")
	f.BoolVar(&expBOM, "bom", false, "Write a CycloneDX model card for the run")
	f.StringVar(&expBOMFormat, "bom-format", "json", "Model card format: json|xml")
	f.StringSliceVar(&expAnnotators, "annotators", nil, "Second-annotator files to compare against (e.g. grader.spk2p3s2.phd1)")
	f.StringVar(&expLevels, "levels", "", "Annotator level mapping, e.g. 未達B1=0,B1=1,B2=2")
	f.BoolVar(&expInteractive, "interactive", false, "Review the settings in a form before running")
	f.BoolVar(&expShowFolds, "show-folds", false, "Print every fold's rows, report and coefficients")
	f.BoolVar(&expPlainSummary, "plain-summary", false, "Print a single-line plain summary (no styling)")
	f.StringVar(&expLogLevel, "log-level", "", "Log level: quiet|standard|debug")

	for _, name := range []string{
		"data-dir", "model-name", "part", "aspect", "labels", "features", "skip-columns", "intersect",
		"regressor", "alpha", "folds", "seed", "no-shuffle", "scale", "select-features", "select-thresholds", "preset", "thresholds",
		"exp-root", "format", "ledger", "no-ledger", "bom", "bom-format", "annotators", "levels",
		"interactive", "show-folds", "plain-summary", "log-level",
	} {
		viper.BindPFlag("experiment."+name, f.Lookup(name))
	}
}
