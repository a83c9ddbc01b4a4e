package evaluate

import (
	"math"
	"slices"
	"sort"

	"github.com/paveg/churnscope/internal/errors"
	"github.com/paveg/churnscope/internal/validation"
	"gonum.org/v1/gonum/integrate"
)

// ROC sweeps every distinct score as a cutoff, from the highest score
// down, and records (TPR, FPR) at each.
//
// Under the strict score > cutoff rule the cutoff equal to the maximum
// score classifies everything negative, so the first point is always
// (0, 0). A final point with threshold -Inf classifies everything
// positive and closes the curve at (1, 1). Points come out in ascending
// FPR order, ready for integration.
//
// Both classes must be present; otherwise one of the rates has a zero
// denominator and ROC fails with InsufficientData.
func ROC(predictions []LabeledPrediction) (RocCurve, error) {
	scores := make([]float64, len(predictions))
	for i, p := range predictions {
		scores[i] = p.Score
	}
	if err := validation.NewCompoundValidator(
		validation.NewNonEmptyValidator(len(predictions), "ROC"),
		validation.NewFiniteValidator(scores, "score", "ROC"),
	).Validate(); err != nil {
		return RocCurve{}, err
	}

	var positives, negatives int
	for _, p := range predictions {
		if p.Actual {
			positives++
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return RocCurve{}, errors.NewInsufficientDataError("ROC", "both classes need at least one member")
	}

	sorted := slices.Clone(predictions)
	slices.SortStableFunc(sorted, func(a, b LabeledPrediction) int {
		// descending by score
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	p := float64(positives)
	n := float64(negatives)
	points := make([]RocPoint, 0, len(sorted)+1)

	// tp and fp count predictions strictly above the current cutoff.
	var tp, fp int
	for i := 0; i < len(sorted); {
		cutoff := sorted[i].Score
		points = append(points, RocPoint{
			Threshold:         cutoff,
			TruePositiveRate:  float64(tp) / p,
			FalsePositiveRate: float64(fp) / n,
		})
		for i < len(sorted) && sorted[i].Score == cutoff {
			if sorted[i].Actual {
				tp++
			} else {
				fp++
			}
			i++
		}
	}
	points = append(points, RocPoint{
		Threshold:         math.Inf(-1),
		TruePositiveRate:  float64(tp) / p,
		FalsePositiveRate: float64(fp) / n,
	})

	curve := RocCurve{Points: points}
	auc, err := AUC(curve)
	if err != nil {
		return RocCurve{}, err
	}
	curve.AUC = auc
	return curve, nil
}

// AUC integrates TPR over FPR with the trapezoidal rule. Repeated FPR
// values form zero-width trapezoids and contribute nothing. The points
// must already be ordered by non-decreasing FPR, which ROC guarantees.
func AUC(curve RocCurve) (float64, error) {
	if len(curve.Points) < 2 {
		return 0, errors.NewInsufficientDataError("AUC", "curve needs at least two points")
	}
	fpr, tpr := curve.Rates()
	if !sort.Float64sAreSorted(fpr) {
		return 0, errors.NewInvalidInputError("AUC", "points are not ordered by ascending false positive rate")
	}
	return integrate.Trapezoidal(fpr, tpr), nil
}
