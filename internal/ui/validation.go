package ui

import (
	"fmt"
	"io"
	"strings"
)

// ValidationReport mirrors validator.ValidationResult to keep ui free of
// domain imports.
type ValidationReport struct {
	Path              string
	ModelName         string
	Valid             bool
	Errors            []string
	Warnings          []string
	CompletenessScore float64
	MissingRequired   []string
	MissingOptional   []string
	Metrics           []MetricView
}

// MetricView is one performance metric of a model card.
type MetricView struct {
	Type  string
	Slice string
	Value string
}

// ValidationUI renders model card validation results.
type ValidationUI struct {
	writer io.Writer
	quiet  bool
}

func NewValidationUI(w io.Writer, quiet bool) *ValidationUI {
	return &ValidationUI{writer: w, quiet: quiet}
}

// PrintReport renders the boxed report.
func (v *ValidationUI) PrintReport(report ValidationReport) {
	if v.quiet {
		return
	}

	var out strings.Builder
	if report.Valid {
		out.WriteString(Success.Bold(true).Render("✓ Model card valid"))
	} else {
		out.WriteString(Error.Bold(true).Render("✗ Model card invalid"))
	}
	out.WriteString("\n\n")
	out.WriteString(v.renderCard(report))

	if m := v.renderMetrics(report.Metrics); m != "" {
		out.WriteString("\n\n")
		out.WriteString(m)
	}
	if len(report.Errors) > 0 {
		out.WriteString("\n\n")
		out.WriteString(renderList(Error.Render(fmt.Sprintf("▼ Errors (%d)", len(report.Errors))), GetCrossMark(), report.Errors, false))
	}
	if len(report.Warnings) > 0 {
		out.WriteString("\n\n")
		out.WriteString(renderList(Warning.Render(fmt.Sprintf("▼ Warnings (%d)", len(report.Warnings))), GetWarnMark(), report.Warnings, true))
	}

	if report.Valid {
		fmt.Fprintln(v.writer, SuccessBox.Render(out.String()))
	} else {
		fmt.Fprintln(v.writer, ErrorBox.Render(out.String()))
	}
}

func (v *ValidationUI) renderCard(report ValidationReport) string {
	var sb strings.Builder
	sb.WriteString(SectionHeader.Render("Model Card"))
	sb.WriteString("\n")
	if report.Path != "" {
		sb.WriteString(FormatKeyValue("File", report.Path))
		sb.WriteString("\n")
	}
	if report.ModelName != "" {
		sb.WriteString(FormatKeyValue("Model", Highlight.Render(report.ModelName)))
		sb.WriteString("\n")
	}
	sb.WriteString(FormatKeyValue("Completeness",
		ScoreBar(report.CompletenessScore, 40)+" "+scoreStyle(report.CompletenessScore).Render(formatPercent(report.CompletenessScore))))
	sb.WriteString("\n")
	if n := len(report.MissingRequired) + len(report.MissingOptional); n > 0 {
		sb.WriteString(Dim.Render(fmt.Sprintf("(%d required, %d optional missing)", len(report.MissingRequired), len(report.MissingOptional))))
		if len(report.MissingOptional) > 0 {
			sb.WriteString("\n")
			sb.WriteString(Dim.Render("optional: " + strings.Join(report.MissingOptional, ", ")))
		}
	} else {
		sb.WriteString(Dim.Render("(all fields present)"))
	}
	return sb.String()
}

// renderMetrics lists the unsliced metrics; per-fold slices are counted.
func (v *ValidationUI) renderMetrics(metrics []MetricView) string {
	if len(metrics) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(SectionHeader.Render("Performance Metrics"))
	sliced := 0
	for _, m := range metrics {
		if m.Slice != "" {
			sliced++
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(FormatKeyValue(m.Type, m.Value))
	}
	if sliced > 0 {
		sb.WriteString("\n")
		sb.WriteString(Dim.Render(fmt.Sprintf("(+%d per-fold values)", sliced)))
	}
	return sb.String()
}

func renderList(header, mark string, items []string, dim bool) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, it := range items {
		if dim {
			it = Dim.Render(it)
		}
		sb.WriteString("\n  " + mark + " " + it)
	}
	return sb.String()
}

// PrintSimpleReport prints a minimal text report.
func (v *ValidationUI) PrintSimpleReport(report ValidationReport) {
	if report.Valid {
		fmt.Fprintf(v.writer, "%s Model card valid\n", GetCheckMark())
	} else {
		fmt.Fprintf(v.writer, "%s Model card invalid\n", GetCrossMark())
	}
	fmt.Fprintf(v.writer, "Completeness: %.1f%%\n", report.CompletenessScore*100)
	fmt.Fprintf(v.writer, "Errors: %d, Warnings: %d\n", len(report.Errors), len(report.Warnings))
	for _, e := range report.Errors {
		fmt.Fprintf(v.writer, "  - %s\n", e)
	}
}
