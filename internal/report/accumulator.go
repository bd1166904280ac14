package report

// Accumulator collects rows and results per fold. Rows are append-only; the
// fold order is the order in which folds were first seen.
type Accumulator struct {
	order   []string
	rows    map[string][]Row
	results map[string]FoldResult
}

// NewAccumulator returns an accumulator with the given folds pre-registered,
// so empty folds still appear in the output.
func NewAccumulator(folds ...string) *Accumulator {
	a := &Accumulator{
		rows:    make(map[string][]Row),
		results: make(map[string]FoldResult),
	}
	for _, f := range folds {
		a.touch(f)
	}
	return a
}

func (a *Accumulator) touch(fold string) {
	if _, ok := a.rows[fold]; !ok {
		a.order = append(a.order, fold)
		a.rows[fold] = []Row{}
	}
}

// Append adds rows to fold.
func (a *Accumulator) Append(fold string, rows ...Row) {
	a.touch(fold)
	a.rows[fold] = append(a.rows[fold], rows...)
}

func (a *Accumulator) record(res FoldResult) {
	a.touch(res.Fold)
	a.results[res.Fold] = res
}

// Folds returns the fold ids in insertion order.
func (a *Accumulator) Folds() []string {
	return append([]string(nil), a.order...)
}

// Rows returns the rows accumulated for fold.
func (a *Accumulator) Rows(fold string) []Row {
	return a.rows[fold]
}

// Len is the total number of rows over all folds.
func (a *Accumulator) Len() int {
	n := 0
	for _, rows := range a.rows {
		n += len(rows)
	}
	return n
}

// Result returns the scored result of fold, if it was reported.
func (a *Accumulator) Result(fold string) (FoldResult, bool) {
	r, ok := a.results[fold]
	return r, ok
}

// Summary builds the aggregate metrics table over every reported fold.
func (a *Accumulator) Summary() Summary {
	var s Summary
	for _, fold := range a.order {
		res, ok := a.results[fold]
		if !ok {
			continue
		}
		s.Rows = append(s.Rows, SummaryRow{
			Fold:              fold,
			Accuracy:          res.Report.Accuracy,
			MacroPrecision:    res.Report.Macro.Precision,
			MacroRecall:       res.Report.Macro.Recall,
			MacroF1:           res.Report.Macro.F1,
			WeightedPrecision: res.Report.Weighted.Precision,
			WeightedRecall:    res.Report.Weighted.Recall,
			WeightedF1:        res.Report.Weighted.F1,
			MSE:               res.Regression.MSE,
			Pearson:           res.Regression.Pearson,
		})
	}
	for _, r := range s.Rows {
		n := float64(len(s.Rows))
		s.MeanAccuracy += r.Accuracy / n
		s.MeanMacroF1 += r.MacroF1 / n
		s.MeanWeightedF1 += r.WeightedF1 / n
		s.MeanMSE += r.MSE / n
		s.MeanPearson += r.Pearson / n
	}
	return s
}
