package factors

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/markcheno/go-talib"

	"factorbt/types"
)

var ErrUnknownFactor = errors.New("unknown factor")

// Factor computes a raw, un-normalised score per date and instrument from a
// price matrix. Higher scores are preferred for the long side.
type Factor interface {
	Name() string
	Compute(prices *types.Matrix) *types.Matrix
}

const (
	MomentumName = "mom"
	LowVolName   = "lowvol"
	ReversalName = "reversal"

	DefaultLowVolWindow = 63
)

// Momentum is the 12-1 month price momentum: the trailing year's return
// minus the most recent month's.
type Momentum struct {
	Lookback int
	Skip     int
}

func NewMomentum() Momentum {
	return Momentum{Lookback: 252, Skip: 21}
}

func (m Momentum) Name() string { return MomentumName }

func (m Momentum) Compute(prices *types.Matrix) *types.Matrix {
	return prices.MapColumns(func(_ string, closes []float64) []float64 {
		long := pctChange(closes, m.Lookback)
		short := pctChange(closes, m.Skip)
		out := make([]float64, len(closes))
		for i := range out {
			out[i] = long[i] - short[i]
		}
		return out
	})
}

// LowVol scores instruments by negated rolling volatility of daily returns,
// so calmer names rank higher.
type LowVol struct {
	Window int
}

func NewLowVol(window int) LowVol {
	if window <= 1 {
		window = DefaultLowVolWindow
	}
	return LowVol{Window: window}
}

func (l LowVol) Name() string { return LowVolName }

func (l LowVol) Compute(prices *types.Matrix) *types.Matrix {
	return prices.MapColumns(func(_ string, closes []float64) []float64 {
		vol := rollingStd(pctChange(closes, 1), l.Window)
		for i, v := range vol {
			vol[i] = -v
		}
		return vol
	})
}

// Reversal is the negated one week return.
type Reversal struct {
	Lookback int
}

func NewReversal() Reversal {
	return Reversal{Lookback: 5}
}

func (r Reversal) Name() string { return ReversalName }

func (r Reversal) Compute(prices *types.Matrix) *types.Matrix {
	return prices.MapColumns(func(_ string, closes []float64) []float64 {
		out := pctChange(closes, r.Lookback)
		for i, v := range out {
			out[i] = -v
		}
		return out
	})
}

var registry = map[string]func(lowVolWindow int) Factor{
	MomentumName: func(int) Factor { return NewMomentum() },
	LowVolName:   func(w int) Factor { return NewLowVol(w) },
	ReversalName: func(int) Factor { return NewReversal() },
}

// ByName builds a registered factor. lowVolWindow only affects lowvol; zero
// selects DefaultLowVolWindow.
func ByName(name string, lowVolWindow int) (Factor, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, must be one of %v", ErrUnknownFactor, name, Names())
	}
	return build(lowVolWindow), nil
}

// Names lists the registered factors alphabetically.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// pctChange is closes[i]/closes[i-n] - 1. The first n entries, and any entry
// whose end points are missing or start from zero, are missing.
func pctChange(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	if n <= 0 || len(closes) <= n {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	ratio := talib.Rocr(closes, n)
	for i := range out {
		switch {
		case i < n:
			out[i] = math.NaN()
		case math.IsNaN(closes[i]) || math.IsNaN(closes[i-n]) || closes[i-n] == 0:
			out[i] = math.NaN()
		default:
			out[i] = ratio[i] - 1
		}
	}
	return out
}

// rollingStd is the sample standard deviation over the trailing window. A
// window containing any missing value is missing.
func rollingStd(vals []float64, window int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		w := vals[i+1-window : i+1]
		var sum float64
		complete := true
		for _, v := range w {
			if math.IsNaN(v) {
				complete = false
				break
			}
			sum += v
		}
		if !complete {
			continue
		}
		mean := sum / float64(window)
		var ss float64
		for _, v := range w {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}
