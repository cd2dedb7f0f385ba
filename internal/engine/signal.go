package engine

import (
	"math"
	"time"

	"factorbt/types"
)

// NormalizeSignal z-scores a raw factor across instruments, one date at a
// time. Dates with no spread (or no observations) come out as zero for every
// observed instrument; missing entries stay missing.
func NormalizeSignal(raw *types.Matrix) *types.Matrix {
	return raw.MapRows(func(_ time.Time, row []float64) []float64 {
		return zscoreRow(row)
	})
}

func zscoreRow(row []float64) []float64 {
	_, vals := types.Observed(row)
	mu, sd := meanStd(vals)

	out := make([]float64, len(row))
	for j, v := range row {
		switch {
		case math.IsNaN(v):
			out[j] = v
		case sd == 0 || math.IsNaN(sd):
			out[j] = 0
		default:
			out[j] = (v - mu) / sd
		}
	}
	return out
}

// meanStd returns the mean and population standard deviation, NaN for an
// empty input.
func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	n := float64(len(vals))
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / n

	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}
