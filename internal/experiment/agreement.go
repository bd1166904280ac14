package experiment

import (
	"github.com/speechassess/cefrgrade/internal/metrics"
	"github.com/speechassess/cefrgrade/internal/report"
)

// Agreement compares one annotator with the reference labels and with the
// predicted buckets, over the speakers the annotator graded.
type Agreement struct {
	Annotator string
	Speakers  int
	// LabelKappa is Cohen's kappa between reference buckets and the annotator.
	LabelKappa float64
	// PredKappa is Cohen's kappa between predicted buckets and the annotator.
	PredKappa float64
	// PredAccuracy is the share of predicted buckets equal to the annotator's.
	PredAccuracy float64
}

// Agreements scores every annotator against the rows in acc. Labels run over
// 0..buckets-1. Annotators sharing no speaker with acc are skipped.
func Agreements(acc *report.Accumulator, annotators map[string]map[string]int, buckets int) []Agreement {
	labels := make([]int, buckets)
	for i := range labels {
		labels[i] = i
	}
	var out []Agreement
	for _, name := range Names(annotators) {
		levels := annotators[name]
		var ref, pred, ann []int
		for _, fold := range acc.Folds() {
			for _, row := range acc.Rows(fold) {
				b, ok := levels[row.SpeakerID]
				if !ok {
					continue
				}
				ref = append(ref, row.TrueBucket)
				pred = append(pred, row.PredBucket)
				ann = append(ann, b)
			}
		}
		if len(ann) == 0 {
			logf("", "annotator %s shares no speaker with the run", name)
			continue
		}
		a := Agreement{Annotator: name, Speakers: len(ann)}
		a.LabelKappa, _ = metrics.CohenKappa(ref, ann, labels)
		a.PredKappa, _ = metrics.CohenKappa(pred, ann, labels)
		hit := 0
		for i := range ann {
			if pred[i] == ann[i] {
				hit++
			}
		}
		a.PredAccuracy = float64(hit) / float64(len(ann))
		out = append(out, a)
	}
	return out
}
