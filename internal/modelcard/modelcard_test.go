package modelcard

import (
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/speechassess/cefrgrade/internal/experiment"
	"github.com/speechassess/cefrgrade/internal/grade"
	bomio "github.com/speechassess/cefrgrade/internal/io"
	"github.com/speechassess/cefrgrade/internal/kfold"
	"github.com/speechassess/cefrgrade/internal/metrics"
	"github.com/speechassess/cefrgrade/internal/report"
)

func sampleResult() *experiment.Result {
	folds := []experiment.FoldOutcome{
		{
			Fold: kfold.Fold{Number: 1},
			Report: report.FoldResult{
				Fold:       "Fold1",
				Regression: metrics.RegressionScores{MSE: 0.5, RMSE: 0.7},
				Report:     metrics.ClassificationReport{Accuracy: 0.8},
			},
		},
		{
			Fold: kfold.Fold{Number: 2},
			Report: report.FoldResult{
				Fold:       "Fold2",
				Regression: metrics.RegressionScores{MSE: 0.3, RMSE: 0.5},
				Report:     metrics.ClassificationReport{Accuracy: 0.6},
			},
		},
	}
	return &experiment.Result{
		RunID:      "3f1c2a7e-8d4b-4c55-9a10-0f7b6c0d2e11",
		StartedAt:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Regressor:  "lasso",
		Alpha:      0.1,
		Thresholds: grade.Thresholds{4, 5},
		Features:   []string{"f0_mean", "energy_std"},
		Samples:    40,
		Folds:      folds,
		Summary:    report.Summary{MeanAccuracy: 0.7, MeanMSE: 0.4},
	}
}

func TestBuild(t *testing.T) {
	bom, err := Build(sampleResult(), Meta{Aspect: "pronunciation", Part: "3", FeatureFile: "data/m/m-feats.xlsx", LabelFile: "data/grader.spk2p3s2"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bom.SerialNumber != "urn:uuid:3f1c2a7e-8d4b-4c55-9a10-0f7b6c0d2e11" {
		t.Fatalf("serial = %s", bom.SerialNumber)
	}
	tools := *bom.Metadata.Tools.Components
	if len(tools) != 1 || tools[0].Name != ToolName {
		t.Fatalf("tools = %+v", tools)
	}
	c := bom.Metadata.Component
	if c.Type != cdx.ComponentTypeMachineLearningModel || c.Name != "lasso-pronunciation-p3" {
		t.Fatalf("component = %s %s", c.Type, c.Name)
	}
	mp := c.ModelCard.ModelParameters
	if mp.Task != "regression" || mp.ModelArchitecture != "lasso" || len(*mp.Datasets) != 2 {
		t.Fatalf("model parameters = %+v", mp)
	}
	if bom.Components == nil || len(*bom.Components) != 2 {
		t.Fatalf("expected two data components")
	}

	found := map[string]string{}
	for _, m := range *c.ModelCard.QuantitativeAnalysis.PerformanceMetrics {
		if m.Slice == "" {
			found[m.Type] = m.Value
		}
	}
	want := map[string]string{"accuracy": "0.7000", "mse": "0.4000", "rmse": "0.6000"}
	for k, v := range want {
		if found[k] != v {
			t.Errorf("%s = %q, want %q", k, found[k], v)
		}
	}
	props := map[string]string{}
	for _, p := range *c.Properties {
		props[p.Name] = p.Value
	}
	if props["cefrgrade:thresholds"] != "4,5" || !strings.Contains(props["cefrgrade:features"], "energy_std") {
		t.Fatalf("properties = %v", props)
	}
	if _, ok := props[PropSelection]; ok {
		t.Fatalf("selection recorded for a run without it")
	}
}

func TestBuild_ClassifierWithSelection(t *testing.T) {
	res := sampleResult()
	res.Regressor = "logistic"
	res.Selection = true
	bom, err := Build(res, Meta{Aspect: "content", Part: "1"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := bom.Metadata.Component
	mp := c.ModelCard.ModelParameters
	if mp.Task != "classification" || (*mp.Outputs)[0].Format != "bucket" {
		t.Fatalf("model parameters = %+v", mp)
	}
	props := map[string]string{}
	for _, p := range *c.Properties {
		props[p.Name] = p.Value
	}
	if props[PropSelection] != "extra-trees" {
		t.Fatalf("properties = %v", props)
	}
}

func TestPerformanceMetrics_PerFoldSlices(t *testing.T) {
	ms := PerformanceMetrics(sampleResult())
	slices := 0
	for _, m := range ms {
		if m.Slice != "" {
			slices++
			if m.Slice != "Fold1" && m.Slice != "Fold2" {
				t.Fatalf("unexpected slice %q", m.Slice)
			}
		}
	}
	if slices != 4 {
		t.Fatalf("got %d per-fold metrics, want 4", slices)
	}
}

func TestBuild_WritesAsBOM(t *testing.T) {
	bom, err := Build(sampleResult(), Meta{})
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "modelcard.json")
	if err := bomio.WriteBOM(bom, out, "auto", "1.6"); err != nil {
		t.Fatalf("WriteBOM: %v", err)
	}
	got, err := bomio.ReadBOM(out, "")
	if err != nil {
		t.Fatalf("ReadBOM: %v", err)
	}
	if got.Metadata.Component.ModelCard == nil {
		t.Fatalf("model card lost in round trip")
	}
}

func TestBuild_NilResult(t *testing.T) {
	if _, err := Build(nil, Meta{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestToolVersion(t *testing.T) {
	origVersion, origRead := Version, readBuildInfo
	defer func() { Version, readBuildInfo = origVersion, origRead }()

	Version = "v1.2.0"
	if got := ToolVersion(); got != "v1.2.0" {
		t.Fatalf("ToolVersion() = %q, want ldflags version", got)
	}

	Version = "dev"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}}, true
	}
	if got := ToolVersion(); got != "v0.3.1" {
		t.Fatalf("ToolVersion() = %q, want module version", got)
	}
}
