// Package validator checks that a model card written by the experiment
// command still describes a usable grader.
package validator

import (
	"fmt"
	"math"
	"strconv"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/speechassess/cefrgrade/internal/grade"
	bomio "github.com/speechassess/cefrgrade/internal/io"
	"github.com/speechassess/cefrgrade/internal/modelcard"
)

// ValidationOptions control how strict validation is.
type ValidationOptions struct {
	// StrictMode fails cards whose completeness is below MinCompletenessScore.
	StrictMode           bool
	MinCompletenessScore float64
	// SpecVersion, when set, must match the card's declared version.
	SpecVersion string
}

// ValidationResult is the outcome of validating one card.
type ValidationResult struct {
	ModelName         string
	Valid             bool
	Errors            []string
	Warnings          []string
	CompletenessScore float64
	MissingRequired   []string
	MissingOptional   []string
	Metrics           []cdx.MLPerformanceMetric
}

type check struct {
	name     string
	required bool
	present  func(bom *cdx.BOM, c *cdx.Component) bool
}

var checks = []check{
	{"name", true, func(_ *cdx.BOM, c *cdx.Component) bool { return c.Name != "" }},
	{"modelParameters.task", true, func(_ *cdx.BOM, c *cdx.Component) bool {
		return c.ModelCard.ModelParameters != nil && c.ModelCard.ModelParameters.Task != ""
	}},
	{"modelParameters.modelArchitecture", true, func(_ *cdx.BOM, c *cdx.Component) bool {
		return c.ModelCard.ModelParameters != nil && c.ModelCard.ModelParameters.ModelArchitecture != ""
	}},
	{"performanceMetrics.accuracy", true, func(_ *cdx.BOM, c *cdx.Component) bool { return hasMetric(c, "accuracy") }},
	{modelcard.PropThresholds, true, func(_ *cdx.BOM, c *cdx.Component) bool { return property(c, modelcard.PropThresholds) != "" }},
	{modelcard.PropFolds, true, func(_ *cdx.BOM, c *cdx.Component) bool { return property(c, modelcard.PropFolds) != "" }},
	{"performanceMetrics.macro_f1", false, func(_ *cdx.BOM, c *cdx.Component) bool { return hasMetric(c, "macro_f1") }},
	{"performanceMetrics.mse", false, func(_ *cdx.BOM, c *cdx.Component) bool { return hasMetric(c, "mse") }},
	{"modelParameters.datasets", false, func(_ *cdx.BOM, c *cdx.Component) bool {
		p := c.ModelCard.ModelParameters
		return p != nil && p.Datasets != nil && len(*p.Datasets) > 0
	}},
	{modelcard.PropAcousticModel, false, func(_ *cdx.BOM, c *cdx.Component) bool {
		return property(c, modelcard.PropAcousticModel) != ""
	}},
	{modelcard.PropFeatures, false, func(_ *cdx.BOM, c *cdx.Component) bool { return property(c, modelcard.PropFeatures) != "" }},
	{"metadata.timestamp", false, func(b *cdx.BOM, _ *cdx.Component) bool { return b.Metadata.Timestamp != "" }},
	{"metadata.tools", false, func(b *cdx.BOM, _ *cdx.Component) bool {
		return b.Metadata.Tools != nil && b.Metadata.Tools.Components != nil && len(*b.Metadata.Tools.Components) > 0
	}},
	{"serialNumber", false, func(b *cdx.BOM, _ *cdx.Component) bool { return b.SerialNumber != "" }},
}

// Validate checks bom against the model card layout cefrgrade writes.
func Validate(bom *cdx.BOM, opts ValidationOptions) ValidationResult {
	res := ValidationResult{}
	fail := func(format string, args ...any) { res.Errors = append(res.Errors, fmt.Sprintf(format, args...)) }

	if bom == nil {
		fail("BOM is nil")
		return res
	}
	if bom.Metadata == nil || bom.Metadata.Component == nil {
		fail("BOM has no metadata component")
		return res
	}
	comp := bom.Metadata.Component
	res.ModelName = comp.Name
	if comp.Type != cdx.ComponentTypeMachineLearningModel {
		fail("metadata component %q has type %q, want %q", comp.Name, comp.Type, cdx.ComponentTypeMachineLearningModel)
	}
	if comp.ModelCard == nil {
		fail("metadata component %q has no modelCard", comp.Name)
		return res
	}

	present := 0
	for _, c := range checks {
		if c.present(bom, comp) {
			present++
			continue
		}
		if c.required {
			res.MissingRequired = append(res.MissingRequired, c.name)
			fail("missing required field %s", c.name)
		} else {
			res.MissingOptional = append(res.MissingOptional, c.name)
		}
	}
	res.CompletenessScore = float64(present) / float64(len(checks))

	if qa := comp.ModelCard.QuantitativeAnalysis; qa != nil && qa.PerformanceMetrics != nil {
		res.Metrics = *qa.PerformanceMetrics
	}
	for _, m := range res.Metrics {
		checkMetric(&res, m)
	}
	if s := property(comp, modelcard.PropThresholds); s != "" {
		if _, err := grade.ParseThresholds(s); err != nil {
			fail("%s: %v", modelcard.PropThresholds, err)
		}
	}
	if s := property(comp, modelcard.PropFolds); s != "" {
		if n, err := strconv.Atoi(s); err != nil || n < 2 {
			fail("%s: %q is not a fold count of at least 2", modelcard.PropFolds, s)
		}
	}

	res.Errors = append(res.Errors, validateSpecVersion(bom, opts.SpecVersion)...)

	if opts.StrictMode && res.CompletenessScore < opts.MinCompletenessScore {
		fail("completeness %.1f%% is below the required %.1f%%", res.CompletenessScore*100, opts.MinCompletenessScore*100)
	}
	res.Valid = len(res.Errors) == 0
	logf("%s: %d errors, %d warnings, completeness %.2f", res.ModelName, len(res.Errors), len(res.Warnings), res.CompletenessScore)
	return res
}

// ValidateFile reads a card (json, xml or auto) and validates it.
func ValidateFile(path, format string, opts ValidationOptions) (ValidationResult, error) {
	bom, err := bomio.ReadBOM(path, format)
	if err != nil {
		return ValidationResult{}, err
	}
	return Validate(bom, opts), nil
}

// checkMetric flags values that do not parse and ratios outside [0, 1].
// NaN is a warning: Pearson r of a constant fold is undefined.
func checkMetric(res *ValidationResult, m cdx.MLPerformanceMetric) {
	label := m.Type
	if m.Slice != "" {
		label += "[" + m.Slice + "]"
	}
	v, err := strconv.ParseFloat(m.Value, 64)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("metric %s: %q is not a number", label, m.Value))
		return
	}
	if math.IsNaN(v) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("metric %s is NaN", label))
		return
	}
	switch m.Type {
	case "accuracy", "macro_f1", "weighted_f1":
		if v < 0 || v > 1 {
			res.Errors = append(res.Errors, fmt.Sprintf("metric %s: %v is outside [0, 1]", label, v))
		}
	case "mse", "rmse":
		if v < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("metric %s: %v is negative", label, v))
		}
	case "pearson":
		if v < -1 || v > 1 {
			res.Errors = append(res.Errors, fmt.Sprintf("metric %s: %v is outside [-1, 1]", label, v))
		}
	default:
		res.Warnings = append(res.Warnings, fmt.Sprintf("unknown metric type %q", m.Type))
	}
}

func validateSpecVersion(bom *cdx.BOM, expected string) []string {
	if expected == "" {
		return nil
	}
	exp, ok := bomio.ParseSpecVersion(expected)
	if !ok {
		return []string{fmt.Sprintf("unsupported CycloneDX specVersion: %q", expected)}
	}
	if bom.SpecVersion == 0 {
		return []string{"BOM missing specVersion"}
	}
	if bom.SpecVersion != exp {
		return []string{fmt.Sprintf("specVersion mismatch: expected %s, got %s", exp.String(), bom.SpecVersion.String())}
	}
	return nil
}

func hasMetric(c *cdx.Component, typ string) bool {
	qa := c.ModelCard.QuantitativeAnalysis
	if qa == nil || qa.PerformanceMetrics == nil {
		return false
	}
	for _, m := range *qa.PerformanceMetrics {
		if m.Type == typ && m.Slice == "" {
			return true
		}
	}
	return false
}

func property(c *cdx.Component, name string) string {
	if c.Properties == nil {
		return ""
	}
	for _, p := range *c.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}
