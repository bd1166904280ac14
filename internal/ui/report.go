package ui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// FoldRow mirrors report.Row to avoid circular imports.
type FoldRow struct {
	SpeakerID  string
	TrueGrade  float64
	TrueBucket int
	PredGrade  float64
	PredBucket int
	Diff       int
}

// FoldView is the rendered part of one fold's result.
type FoldView struct {
	Fold     string
	Rows     []FoldRow
	MSE      float64
	RMSE     float64
	Pearson  float64
	Accuracy float64
	MacroF1  float64
	Report   string // classification report text
	Matrix   string // confusion matrix text
	Weights  []WeightView
	// WeightLabel titles the weights, e.g. "Coefficients" or "Importances".
	WeightLabel string
	// Selected are the features kept by feature selection with their importance.
	Selected []WeightView
}

// WeightView is one non-zero coefficient or importance.
type WeightView struct {
	Feature string
	Value   float64
}

// SummaryView mirrors report.Summary plus run details.
type SummaryView struct {
	RunID      string
	Regressor  string
	Thresholds string
	Samples    int
	Features   int
	Folds      []SummaryFold
	Accuracy   float64
	MacroF1    float64
	WeightedF1 float64
	MSE        float64
	Pearson    float64
	Duration   time.Duration
	Outputs    []string
	Agreements []AgreementView
}

// SummaryFold is one row of the per-fold metric table.
type SummaryFold struct {
	Fold       string
	Accuracy   float64
	MacroF1    float64
	WeightedF1 float64
}

// AgreementView compares predictions with a second annotator.
type AgreementView struct {
	Annotator  string
	Speakers   int
	LabelKappa float64
	PredKappa  float64
}

// RunView is one ledger entry.
type RunView struct {
	ID         string
	StartedAt  time.Time
	Model      string
	Regressor  string
	Aspect     string
	Part       string
	Folds      int
	Thresholds string
	Accuracy   float64
	MacroF1    float64
}

// ExperimentUI renders the experiment and runs commands.
type ExperimentUI struct {
	writer   io.Writer
	quiet    bool
	workflow *Workflow
	start    time.Time
}

// NewExperimentUI creates a UI handler for the experiment command.
func NewExperimentUI(w io.Writer, quiet bool) *ExperimentUI {
	return &ExperimentUI{writer: w, quiet: quiet, start: time.Now()}
}

// StartWorkflow shows one task per fold plus the output step.
func (e *ExperimentUI) StartWorkflow(folds []string) {
	if e.quiet {
		return
	}
	e.start = time.Now()
	e.workflow = NewWorkflow(e.writer, "Cross-validating")
	for _, f := range folds {
		e.workflow.AddTask(f)
	}
	e.workflow.AddTask("Writing reports")
	e.workflow.Start()
}

// StartFold marks fold idx as running.
func (e *ExperimentUI) StartFold(idx int, detail string) {
	if e.quiet || e.workflow == nil {
		return
	}
	e.workflow.StartTask(idx, Dim.Render(detail))
}

// CompleteFold marks fold idx as done with its accuracy.
func (e *ExperimentUI) CompleteFold(idx int, accuracy float64) {
	if e.quiet || e.workflow == nil {
		return
	}
	e.workflow.CompleteTask(idx, fmt.Sprintf("accuracy %s", formatMetric(accuracy)))
}

// FailFold marks fold idx as failed.
func (e *ExperimentUI) FailFold(idx int, err error) {
	if e.quiet || e.workflow == nil {
		return
	}
	e.workflow.FailTask(idx, err.Error())
}

// StartWriting marks the output task as running.
func (e *ExperimentUI) StartWriting(dir string) {
	if e.quiet || e.workflow == nil {
		return
	}
	e.workflow.StartTask(e.workflow.Len()-1, Dim.Render(dir))
}

// CompleteWriting marks the output task as done.
func (e *ExperimentUI) CompleteWriting(files int) {
	if e.quiet || e.workflow == nil {
		return
	}
	e.workflow.CompleteTask(e.workflow.Len()-1, fmt.Sprintf("%d files", files))
}

// FinishWorkflow stops the spinner and prints the final task states.
func (e *ExperimentUI) FinishWorkflow() {
	if e.quiet || e.workflow == nil {
		return
	}
	e.workflow.Stop()
}

// PrintFold renders one fold's rows, scores and coefficients.
func (e *ExperimentUI) PrintFold(f FoldView) {
	if e.quiet {
		return
	}
	var sb strings.Builder
	sb.WriteString(Title.Render(f.Fold))
	sb.WriteString("\n\n")

	sb.WriteString(Dim.Render(fmt.Sprintf("%-14s %6s %5s %6s %5s %5s", "speaker", "anno", "cefr", "pred", "cefr", "diff")))
	sb.WriteString("\n")
	for _, r := range f.Rows {
		fmt.Fprintf(&sb, "%-14s %6.2f %5d %6.2f %5d %5s\n",
			truncate(r.SpeakerID, 14), r.TrueGrade, r.TrueBucket, r.PredGrade, r.PredBucket, BucketDiff(r.Diff))
	}
	sb.WriteString("\n")

	sb.WriteString(FormatKeyValue("MSE", formatMetric(f.MSE)))
	sb.WriteString("  ")
	sb.WriteString(FormatKeyValue("RMSE", formatMetric(f.RMSE)))
	sb.WriteString("  ")
	sb.WriteString(FormatKeyValue("Pearson", formatMetric(f.Pearson)))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Accuracy", ScoreBar(f.Accuracy, 30)+" "+scoreStyle(f.Accuracy).Render(formatPercent(f.Accuracy))))
	sb.WriteString("\n")

	if f.Report != "" {
		sb.WriteString("\n")
		sb.WriteString(SectionHeader.Render("Classification report"))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(f.Report, "\n"))
		sb.WriteString("\n")
	}
	if f.Matrix != "" {
		sb.WriteString("\n")
		sb.WriteString(SectionHeader.Render("Confusion matrix"))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(f.Matrix, "\n"))
		sb.WriteString("\n")
	}
	if len(f.Selected) > 0 {
		sb.WriteString("\n")
		sb.WriteString(SectionHeader.Render(fmt.Sprintf("Selected features (%d)", len(f.Selected))))
		sb.WriteString("\n")
		writeWeights(&sb, f.Selected)
	}
	if len(f.Weights) > 0 {
		label := f.WeightLabel
		if label == "" {
			label = "Coefficients"
		}
		sb.WriteString("\n")
		sb.WriteString(SectionHeader.Render(fmt.Sprintf("%s (%d non-zero)", label, len(f.Weights))))
		sb.WriteString("\n")
		writeWeights(&sb, f.Weights)
	}
	fmt.Fprintln(e.writer, Box.Render(strings.TrimRight(sb.String(), "\n")))
}

func writeWeights(sb *strings.Builder, ws []WeightView) {
	for _, w := range ws {
		fmt.Fprintf(sb, "  %s %s\n", Dim.Render(fmt.Sprintf("%-24s", truncate(w.Feature, 24))), formatMetric(w.Value))
	}
}

// PrintSummary renders the per-fold metric table and the run totals.
func (e *ExperimentUI) PrintSummary(s SummaryView) {
	if e.quiet {
		return
	}
	var sb strings.Builder
	sb.WriteString(Success.Bold(true).Render("Cross-validation Summary"))
	sb.WriteString("\n\n")
	if s.RunID != "" {
		sb.WriteString(FormatKeyValue("Run", Highlight.Render(s.RunID)))
		sb.WriteString("\n")
	}
	sb.WriteString(FormatKeyValue("Regressor", s.Regressor))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Thresholds", s.Thresholds))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Samples", fmt.Sprintf("%d speakers, %d features", s.Samples, s.Features)))
	sb.WriteString("\n\n")

	sb.WriteString(SectionHeader.Render("Folds"))
	sb.WriteString("\n")
	for _, f := range s.Folds {
		fmt.Fprintf(&sb, "%-8s %s %s  %s %s\n", f.Fold,
			ScoreBar(f.Accuracy, 20), scoreStyle(f.Accuracy).Render(fmt.Sprintf("%6s", formatPercent(f.Accuracy))),
			Dim.Render("macro f1"), formatMetric(f.MacroF1))
	}
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Mean accuracy", scoreStyle(s.Accuracy).Render(formatPercent(s.Accuracy))))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Macro F1", formatMetric(s.MacroF1)))
	sb.WriteString("  ")
	sb.WriteString(FormatKeyValue("Weighted F1", formatMetric(s.WeightedF1)))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("MSE", formatMetric(s.MSE)))
	sb.WriteString("  ")
	sb.WriteString(FormatKeyValue("Pearson", formatMetric(s.Pearson)))

	if len(s.Agreements) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(SectionHeader.Render("Annotator agreement (Cohen's kappa)"))
		for _, a := range s.Agreements {
			fmt.Fprintf(&sb, "\n%s %s %s  %s %s  %s",
				Highlight.Render(a.Annotator),
				Dim.Render("label"), formatMetric(a.LabelKappa),
				Dim.Render("pred"), formatMetric(a.PredKappa),
				Dim.Render(fmt.Sprintf("(%d speakers)", a.Speakers)))
		}
	}

	if len(s.Outputs) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(SectionHeader.Render("Outputs"))
		for _, o := range s.Outputs {
			sb.WriteString("\n  ")
			sb.WriteString(o)
		}
	}
	if s.Duration > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(FormatKeyValue("Duration", s.Duration.Round(time.Millisecond).String()))
	}
	fmt.Fprintln(e.writer, SuccessBox.Render(sb.String()))
}

// PrintSimpleSummary prints a plain one-line-per-fold summary.
func (e *ExperimentUI) PrintSimpleSummary(s SummaryView) {
	for _, f := range s.Folds {
		fmt.Fprintf(e.writer, "%s: accuracy %s, macro f1 %s\n", f.Fold, formatMetric(f.Accuracy), formatMetric(f.MacroF1))
	}
	fmt.Fprintf(e.writer, "mean accuracy %s over %d folds\n", formatMetric(s.Accuracy), len(s.Folds))
}

// PrintRuns renders ledger entries as a table.
func (e *ExperimentUI) PrintRuns(runs []RunView) {
	if e.quiet {
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(e.writer, FormatStatus("warning", "No runs recorded yet."))
		return
	}
	var sb strings.Builder
	sb.WriteString(Title.Render(fmt.Sprintf("Experiment runs (%d)", len(runs))))
	sb.WriteString("\n\n")
	sb.WriteString(Dim.Render(fmt.Sprintf("%-8s %-16s %-14s %-8s %-14s %5s %-12s %8s %8s",
		"run", "started", "model", "reg", "aspect", "folds", "thresholds", "acc", "macroF1")))
	for _, r := range runs {
		fmt.Fprintf(&sb, "\n%-8s %-16s %-14s %-8s %-14s %5d %-12s %8s %8s",
			truncate(r.ID, 8), r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.Model, 14), r.Regressor, truncate(r.Aspect+"/p"+r.Part, 14), r.Folds,
			truncate(r.Thresholds, 12), formatMetric(r.Accuracy), formatMetric(r.MacroF1))
	}
	fmt.Fprintln(e.writer, Box.Render(sb.String()))
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return Muted.Render("nan")
	}
	return fmt.Sprintf("%.4f", v)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
