// Package modelcard describes a cross-validated grader as a CycloneDX BOM
// with a machine-learning model card.
package modelcard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/speechassess/cefrgrade/internal/experiment"
)

const (
	ToolVendor = "speechassess"
	ToolName   = "cefrgrade"
)

// Property names recorded on the model component.
const (
	PropAlpha         = "cefrgrade:alpha"
	PropFolds         = "cefrgrade:folds"
	PropSamples       = "cefrgrade:samples"
	PropThresholds    = "cefrgrade:thresholds"
	PropFeatures      = "cefrgrade:features"
	PropAcousticModel = "cefrgrade:acousticModel"
	PropSelection     = "cefrgrade:featureSelection"
)

// Meta is the run context that the experiment result does not carry.
type Meta struct {
	AcousticModel string
	Aspect        string
	Part          string
	FeatureFile   string
	LabelFile     string
}

// Build assembles the BOM for a finished run.
func Build(res *experiment.Result, meta Meta) (*cdx.BOM, error) {
	if res == nil {
		return nil, fmt.Errorf("modelcard: nil result")
	}
	bom := cdx.NewBOM()
	bom.SpecVersion = cdx.SpecVersion1_6
	bom.SerialNumber = "urn:uuid:" + res.RunID
	bom.Metadata = &cdx.Metadata{
		Timestamp: res.StartedAt.Format(time.RFC3339),
		Tools: &cdx.ToolsChoice{
			Components: &[]cdx.Component{{
				Type:         cdx.ComponentTypeApplication,
				Manufacturer: &cdx.OrganizationalEntity{Name: ToolVendor},
				Name:         ToolName,
				Version:      ToolVersion(),
			}},
		},
	}

	model := modelComponent(res, meta)
	bom.Metadata.Component = &model

	var components []cdx.Component
	if meta.FeatureFile != "" {
		components = append(components, dataComponent(meta.FeatureFile, "acoustic feature table"))
	}
	if meta.LabelFile != "" {
		components = append(components, dataComponent(meta.LabelFile, "annotated grades"))
	}
	if len(components) > 0 {
		bom.Components = &components
	}
	logf(res.RunID, "model card built (%d performance metrics)", len(*model.ModelCard.QuantitativeAnalysis.PerformanceMetrics))
	return bom, nil
}

func modelComponent(res *experiment.Result, meta Meta) cdx.Component {
	name := res.Regressor
	if meta.Aspect != "" {
		name += "-" + meta.Aspect
	}
	if meta.Part != "" {
		name += "-p" + meta.Part
	}

	var datasets []cdx.MLDatasetChoice
	for _, ref := range []string{meta.FeatureFile, meta.LabelFile} {
		if ref != "" {
			datasets = append(datasets, cdx.MLDatasetChoice{Ref: dataRef(ref)})
		}
	}

	task, family, output := "regression", "linear-model", "grade"
	switch res.Regressor {
	case "logistic":
		task, output = "classification", "bucket"
	case "gbr":
		family = "tree-ensemble"
	}
	params := &cdx.MLModelParameters{
		Approach:           &cdx.MLModelParametersApproach{Type: cdx.MLModelParametersApproachTypeSupervised},
		Task:               task,
		ArchitectureFamily: family,
		ModelArchitecture:  res.Regressor,
		Inputs:             &[]cdx.MLInputOutputParameters{{Format: "acoustic-statistics"}},
		Outputs:            &[]cdx.MLInputOutputParameters{{Format: output}},
	}
	if len(datasets) > 0 {
		params.Datasets = &datasets
	}

	metrics := PerformanceMetrics(res)
	props := []cdx.Property{
		{Name: PropAlpha, Value: strconv.FormatFloat(res.Alpha, 'g', -1, 64)},
		{Name: PropFolds, Value: strconv.Itoa(len(res.Folds))},
		{Name: PropSamples, Value: strconv.Itoa(res.Samples)},
		{Name: PropThresholds, Value: res.Thresholds.String()},
		{Name: PropFeatures, Value: strings.Join(res.Features, ",")},
	}
	if meta.AcousticModel != "" {
		props = append(props, cdx.Property{Name: PropAcousticModel, Value: meta.AcousticModel})
	}
	if res.Selection {
		props = append(props, cdx.Property{Name: PropSelection, Value: "extra-trees"})
	}

	return cdx.Component{
		BOMRef:  "urn:uuid:" + res.RunID,
		Type:    cdx.ComponentTypeMachineLearningModel,
		Name:    name,
		Version: res.StartedAt.UTC().Format("20060102T150405Z"),
		ModelCard: &cdx.MLModelCard{
			ModelParameters: params,
			QuantitativeAnalysis: &cdx.MLQuantitativeAnalysis{
				PerformanceMetrics: &metrics,
			},
		},
		Properties: &props,
	}
}

// PerformanceMetrics lists the fold means followed by one entry per fold and
// metric, sliced by fold id.
func PerformanceMetrics(res *experiment.Result) []cdx.MLPerformanceMetric {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	s := res.Summary
	out := []cdx.MLPerformanceMetric{
		{Type: "accuracy", Value: f(s.MeanAccuracy)},
		{Type: "macro_f1", Value: f(s.MeanMacroF1)},
		{Type: "weighted_f1", Value: f(s.MeanWeightedF1)},
		{Type: "mse", Value: f(s.MeanMSE)},
		{Type: "pearson", Value: f(s.MeanPearson)},
	}
	var rmse float64
	for _, fo := range res.Folds {
		rmse += fo.Report.Regression.RMSE
	}
	if len(res.Folds) > 0 {
		out = append(out, cdx.MLPerformanceMetric{Type: "rmse", Value: f(rmse / float64(len(res.Folds)))})
	}
	for _, fo := range res.Folds {
		id := fo.Fold.ID()
		out = append(out,
			cdx.MLPerformanceMetric{Type: "accuracy", Value: f(fo.Report.Accuracy()), Slice: id},
			cdx.MLPerformanceMetric{Type: "mse", Value: f(fo.Report.Regression.MSE), Slice: id},
		)
	}
	return out
}

func dataRef(path string) string { return "file:" + path }

func dataComponent(path, description string) cdx.Component {
	return cdx.Component{
		BOMRef:      dataRef(path),
		Type:        cdx.ComponentTypeData,
		Name:        path,
		Description: description,
	}
}
