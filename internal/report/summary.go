package report

import "fmt"

// SummaryColumns are the headers of the aggregate metrics table.
var SummaryColumns = []string{
	"fold", "acc",
	"macro_precision", "macro_recall", "macro_f1-score",
	"weighted_precision", "weighted_recall", "weighted_f1-score",
}

// SummaryRow is one fold of the aggregate metrics table.
type SummaryRow struct {
	Fold              string
	Accuracy          float64
	MacroPrecision    float64
	MacroRecall       float64
	MacroF1           float64
	WeightedPrecision float64
	WeightedRecall    float64
	WeightedF1        float64

	// Not part of the exported table; kept for the ledger and model card.
	MSE     float64
	Pearson float64
}

// Values returns the row in SummaryColumns order (fold excluded).
func (r SummaryRow) Values() []float64 {
	return []float64{
		r.Accuracy,
		r.MacroPrecision, r.MacroRecall, r.MacroF1,
		r.WeightedPrecision, r.WeightedRecall, r.WeightedF1,
	}
}

// Summary is the per-fold metrics table plus means over folds.
type Summary struct {
	Rows           []SummaryRow
	MeanAccuracy   float64
	MeanMacroF1    float64
	MeanWeightedF1 float64
	MeanMSE        float64
	MeanPearson    float64
}

// FormatSummary returns a one-line summary of the run, for plain output.
func FormatSummary(s Summary) string {
	return fmt.Sprintf("Folds: %d | Accuracy: %.4f | Macro F1: %.4f | Weighted F1: %.4f | MSE: %.4f",
		len(s.Rows), s.MeanAccuracy, s.MeanMacroF1, s.MeanWeightedF1, s.MeanMSE)
}
