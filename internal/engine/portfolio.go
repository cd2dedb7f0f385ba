package engine

import (
	"math"
	"sort"
	"time"

	"factorbt/types"
)

// MinBreadth is the fewest valid signal values a date needs before it gets
// any position.
const MinBreadth = 10

type side int

const (
	sideNone side = iota
	sideLong
	sideShort
)

// BuildWeights turns a normalised signal into long/short portfolio weights.
//
// Per date the valid cross-section is bucketed by its long and short
// quantiles; an instrument in both buckets is short. Bucket sizes are counted
// after that resolution, so longs get 1/|longs| and shorts -1/|shorts| of the
// instruments that actually hold each side. With DollarNeutral each side is
// then rescaled to sum to +1 / -1.
//
// Dates with fewer than MinBreadth valid values, or with both buckets empty,
// are left unset (every cell missing). On a set date every instrument has a
// weight, zero when it was not selected.
func BuildWeights(signal *types.Matrix, cfg Config) *types.Matrix {
	return signal.MapRows(func(_ time.Time, row []float64) []float64 {
		return weightRow(row, cfg)
	})
}

func weightRow(row []float64, cfg Config) []float64 {
	unset := make([]float64, len(row))
	for j := range unset {
		unset[j] = math.NaN()
	}

	idx, vals := types.Observed(row)
	if len(vals) < MinBreadth {
		return unset
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	qLong := quantile(sorted, cfg.LongQuantile)
	qShort := quantile(sorted, cfg.ShortQuantile)

	sides := make([]side, len(row))
	var nLong, nShort int
	for k, v := range vals {
		s := resolveSide(v >= qLong, v <= qShort)
		sides[idx[k]] = s
		switch s {
		case sideLong:
			nLong++
		case sideShort:
			nShort++
		}
	}
	if nLong == 0 && nShort == 0 {
		return unset
	}

	w := make([]float64, len(row))
	for j, s := range sides {
		switch s {
		case sideLong:
			w[j] = 1.0 / float64(nLong)
		case sideShort:
			w[j] = -1.0 / float64(nShort)
		}
	}

	if cfg.DollarNeutral {
		rescaleSides(w)
	}
	return w
}

// resolveSide applies the overlap priority: short wins when an instrument
// falls in both buckets.
func resolveSide(inLong, inShort bool) side {
	switch {
	case inShort:
		return sideShort
	case inLong:
		return sideLong
	default:
		return sideNone
	}
}

// rescaleSides scales positive weights to sum to 1 and negative weights to
// sum to -1, skipping a side whose sum is zero. Sums are taken over the
// weights actually held, after the short overwrite.
func rescaleSides(w []float64) {
	var pos, neg float64
	for _, v := range w {
		if v > 0 {
			pos += v
		} else if v < 0 {
			neg -= v
		}
	}
	for j, v := range w {
		switch {
		case v > 0 && pos > 0:
			w[j] = v / pos
		case v < 0 && neg > 0:
			w[j] = v / neg
		}
	}
}

// quantile is the linear-interpolation sample quantile of ascending values:
// position h = (n-1)q between order statistics.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
