package ui

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"charm.land/bubbles/v2/spinner"
)

func TestColorAppliesANSICodes(t *testing.T) {
	Init(false)
	got := Color("hello", FgGreen)
	want := FgGreen + "hello" + Reset
	if got != want {
		t.Fatalf("Color() = %q, want %q", got, want)
	}
}

func TestColorDisabled(t *testing.T) {
	Init(true)
	defer Init(false)
	if got := Color("hello", FgRed); got != "hello" {
		t.Fatalf("Color() with colour disabled = %q", got)
	}
}

func TestExperimentUI_PrintFold(t *testing.T) {
	var buf bytes.Buffer
	NewExperimentUI(&buf, false).PrintFold(FoldView{
		Fold: "Fold2",
		Rows: []FoldRow{
			{SpeakerID: "spk01", TrueGrade: 3.5, TrueBucket: 0, PredGrade: 4.4, PredBucket: 1, Diff: 1},
			{SpeakerID: "spk02", TrueGrade: 5, TrueBucket: 2, PredGrade: 5, PredBucket: 2},
		},
		MSE:      0.405,
		RMSE:     math.Sqrt(0.405),
		Pearson:  math.NaN(),
		Accuracy: 0.5,
		Report:   "precision recall\n",
		Matrix:   "true\\pred 0 1\n",
		Weights:  []WeightView{{Feature: "f0_mean", Value: 0.25}},
	})
	out := buf.String()
	for _, want := range []string{"Fold2", "spk01", "spk02", "0.4050", "nan", "50.0%", "Classification report", "Confusion matrix", "f0_mean", "Coefficients (1 non-zero)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExperimentUI_PrintFoldSelection(t *testing.T) {
	var buf bytes.Buffer
	NewExperimentUI(&buf, false).PrintFold(FoldView{
		Fold:        "Fold1",
		Rows:        []FoldRow{{SpeakerID: "spk01", TrueGrade: 4, TrueBucket: 1, PredGrade: 4, PredBucket: 1}},
		Weights:     []WeightView{{Feature: "f0_nz_std", Value: 0.8}, {Feature: "energy_mean", Value: 0.2}},
		WeightLabel: "Importances",
		Selected:    []WeightView{{Feature: "f0_nz_std", Value: 0.6}, {Feature: "energy_mean", Value: 0.4}},
	})
	out := buf.String()
	for _, want := range []string{"Selected features (2)", "Importances (2 non-zero)", "f0_nz_std", "energy_mean"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Coefficients") {
		t.Errorf("tree model weights titled as coefficients:\n%s", out)
	}
}

func TestExperimentUI_PrintSummary(t *testing.T) {
	tests := []struct {
		name  string
		view  SummaryView
		quiet bool
		want  []string
	}{
		{
			name: "full summary",
			view: SummaryView{
				RunID:      "1234",
				Regressor:  "lasso",
				Thresholds: "4,5",
				Samples:    10,
				Features:   72,
				Folds:      []SummaryFold{{Fold: "Fold1", Accuracy: 0.8, MacroF1: 0.7}, {Fold: "Fold2", Accuracy: 0.6}},
				Accuracy:   0.7,
				Agreements: []AgreementView{{Annotator: "phd1", Speakers: 10, LabelKappa: 0.5, PredKappa: 0.25}},
				Outputs:    []string{"exp/pronunciation/kfold_detail.xlsx"},
				Duration:   1500 * time.Millisecond,
			},
			want: []string{"Cross-validation Summary", "1234", "lasso", "10 speakers, 72 features", "Fold1", "80.0%", "70.0%", "phd1", "0.2500", "kfold_detail.xlsx", "1.5s"},
		},
		{
			name:  "quiet mode produces no output",
			view:  SummaryView{Folds: []SummaryFold{{Fold: "Fold1"}}},
			quiet: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewExperimentUI(&buf, tt.quiet).PrintSummary(tt.view)
			out := buf.String()
			if tt.quiet {
				if out != "" {
					t.Fatalf("expected no output in quiet mode, got %q", out)
				}
				return
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestExperimentUI_PrintSimpleSummary(t *testing.T) {
	var buf bytes.Buffer
	NewExperimentUI(&buf, true).PrintSimpleSummary(SummaryView{
		Folds:    []SummaryFold{{Fold: "Fold1", Accuracy: 0.5, MacroF1: 0.25}},
		Accuracy: 0.5,
	})
	want := "Fold1: accuracy 0.5000, macro f1 0.2500\nmean accuracy 0.5000 over 1 folds\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestExperimentUI_PrintRuns(t *testing.T) {
	var buf bytes.Buffer
	e := NewExperimentUI(&buf, false)
	e.PrintRuns(nil)
	if !strings.Contains(buf.String(), "No runs recorded") {
		t.Fatalf("empty ledger output = %q", buf.String())
	}
	buf.Reset()
	e.PrintRuns([]RunView{{ID: "abcdef0123456789", StartedAt: time.Now(), Model: "wav2vec2", Regressor: "lasso", Aspect: "content", Part: "3", Folds: 5, Thresholds: "4,5", Accuracy: 0.61}})
	out := buf.String()
	for _, want := range []string{"Experiment runs (1)", "abcdef0…", "wav2vec2", "content/p3", "0.6100"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWorkflow_FinalRender(t *testing.T) {
	var buf bytes.Buffer
	wf := NewWorkflow(&buf, "Cross-validating")
	a := wf.AddTask("Fold1")
	b := wf.AddTask("Fold2")
	c := wf.AddTask("Writing reports")
	wf.Start()
	wf.StartTask(a, "training")
	wf.CompleteTask(a, "accuracy 0.8")
	wf.FailTask(b, "singular matrix")
	wf.SkipTask(c, "no output")
	wf.Stop()
	wf.Stop()

	if wf.Status(a) != TaskDone || wf.Status(b) != TaskFailed || wf.Status(c) != TaskSkipped || wf.Len() != 3 {
		t.Fatalf("unexpected task states")
	}
	out := buf.String()
	for _, want := range []string{"Cross-validating", "Fold1", "accuracy 0.8", "singular matrix", "no output"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressModel_Update(t *testing.T) {
	m := NewProgressModel("Extracting", []string{"a.wav", "b.wav", "c.wav"})
	next, _ := m.Update(ProgressMsg{StepIndex: 0, Status: StatusComplete, Message: "412 frames"})
	next, _ = next.Update(ProgressMsg{StepIndex: 1, Status: StatusFailed, Message: "bad header", Line: "c.wav"})
	next, _ = next.Update(ProgressMsg{StepIndex: 7, Status: StatusComplete})
	pm := next.(ProgressModel)
	if pm.Finished() != 2 {
		t.Fatalf("finished = %d, want 2", pm.Finished())
	}
	out := pm.render()
	for _, want := range []string{"Extracting", "2/3", "a.wav", "412 frames", "bad header", "c.wav"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}

	next, cmd := pm.Update(DoneMsg{Err: errors.New("boom")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if out := next.(ProgressModel).render(); !strings.Contains(out, "boom") {
		t.Fatalf("final view missing error:\n%s", out)
	}
}

func TestProgressModel_SpinnerTick(t *testing.T) {
	m := NewProgressModel("", []string{"a.wav"})
	if _, cmd := m.Update(spinner.TickMsg{}); cmd == nil {
		t.Fatalf("spinner tick should schedule the next tick")
	}
}

func TestScoreBar_Clamps(t *testing.T) {
	for _, s := range []float64{-1, math.NaN(), 0.5, 2} {
		if got := ScoreBar(s, 10); strings.Count(got, "█")+strings.Count(got, "░") != 10 {
			t.Fatalf("ScoreBar(%v) = %q", s, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefgh", 4, "abc…"},
		{"ab", 1, "a"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestValidationUI(t *testing.T) {
	report := ValidationReport{
		Path:              "exp/pronunciation/model_card.json",
		ModelName:         "lasso-pronunciation-p3",
		CompletenessScore: 0.75,
		MissingOptional:   []string{"cefrgrade:acousticModel"},
		Errors:            []string{"metric accuracy: 1.5 is outside [0, 1]"},
		Warnings:          []string{"metric pearson is NaN"},
		Metrics: []MetricView{
			{Type: "accuracy", Value: "1.5000"},
			{Type: "accuracy", Slice: "Fold1", Value: "0.5000"},
		},
	}

	var buf bytes.Buffer
	NewValidationUI(&buf, false).PrintReport(report)
	out := buf.String()
	for _, want := range []string{"Model card invalid", "lasso-pronunciation-p3", "75.0%", "Errors (1)", "Warnings (1)", "+1 per-fold values", "cefrgrade:acousticModel"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	NewValidationUI(&buf, true).PrintReport(report)
	if buf.Len() != 0 {
		t.Fatalf("quiet PrintReport wrote %q", buf.String())
	}

	buf.Reset()
	report.Valid, report.Errors = true, nil
	NewValidationUI(&buf, true).PrintSimpleReport(report)
	if got := buf.String(); !strings.Contains(got, "Model card valid") || !strings.Contains(got, "Errors: 0, Warnings: 1") {
		t.Fatalf("simple report = %q", got)
	}
}
