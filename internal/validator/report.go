package validator

import "fmt"

// FormatSummary returns a one-line summary of the validation result.
func FormatSummary(r ValidationResult) string {
	status := "PASSED"
	if !r.Valid {
		status = "FAILED"
	}
	return fmt.Sprintf("Validation: %s | Score: %.1f%% | Metrics: %d | Errors: %d | Warnings: %d",
		status,
		r.CompletenessScore*100,
		len(r.Metrics),
		len(r.Errors),
		len(r.Warnings))
}
