package evaluate

import (
	"github.com/paveg/churnscope/internal/errors"
)

// YoudenOptimalCutoff picks the curve point maximizing
// TPR + (1 - FPR) - 1.
//
// Ties go to the first maximal point in curve order (ascending FPR,
// descending threshold), i.e. the most conservative cutoff among equals.
func YoudenOptimalCutoff(curve RocCurve) (YoudenResult, error) {
	if len(curve.Points) < 2 {
		return YoudenResult{}, errors.NewInsufficientDataError("YoudenOptimalCutoff", "curve needs at least two points")
	}

	best := 0
	bestIndex := curve.Points[0].YoudenIndex()
	for i := 1; i < len(curve.Points); i++ {
		if idx := curve.Points[i].YoudenIndex(); idx > bestIndex {
			best, bestIndex = i, idx
		}
	}

	p := curve.Points[best]
	return YoudenResult{
		Cutoff:            p.Threshold,
		IndexValue:        bestIndex,
		TruePositiveRate:  p.TruePositiveRate,
		FalsePositiveRate: p.FalsePositiveRate,
	}, nil
}

// YoudenCurve returns the index value at every point, in curve order.
func YoudenCurve(curve RocCurve) []float64 {
	out := make([]float64, len(curve.Points))
	for i, p := range curve.Points {
		out[i] = p.YoudenIndex()
	}
	return out
}
