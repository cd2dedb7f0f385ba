package engine

import (
	"fmt"
	"math"

	"factorbt/types"
)

// RunBacktest applies lagged weights to realised returns.
//
// The two matrices are inner-joined on date. The weight decided on date t is
// applied to the return of date t+lag; leading gaps and unset weights count
// as flat. Returns and weights are matched by instrument name, and a missing
// return drops only that instrument from the date's gross return.
//
// Turnover is the summed absolute change of applied weights versus the
// previous date, zero on the first date. Cost is CostRate x turnover and net
// is gross minus cost.
func RunBacktest(returns, weights *types.Matrix, cfg Config) (*types.BacktestResult, error) {
	if cfg.Lag < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeLag, cfg.Lag)
	}

	rets, w := types.Align(returns, weights)
	applied := w.Shift(cfg.Lag).Fill(0)

	// column j of rets -> column of applied, -1 when the instrument has no weight
	weightCol := make([]int, rets.Width())
	for j, name := range rets.Columns() {
		if k, ok := applied.ColumnIndex(name); ok {
			weightCol[j] = k
		} else {
			weightCol[j] = -1
		}
	}

	n := rets.Len()
	result := &types.BacktestResult{
		Dates:    rets.Dates(),
		Gross:    make([]float64, n),
		Turnover: make([]float64, n),
		Costs:    make([]float64, n),
		Net:      make([]float64, n),
	}
	rate := cfg.CostRate()

	// dates must be walked in order: turnover depends on the previous row
	var prev []float64
	for i := 0; i < n; i++ {
		cur := applied.Row(i)

		var gross float64
		for j, k := range weightCol {
			r := rets.At(i, j)
			if k < 0 || math.IsNaN(r) {
				continue
			}
			gross += cur[k] * r
		}

		var turnover float64
		if prev != nil {
			for k := range cur {
				turnover += math.Abs(cur[k] - prev[k])
			}
		}

		cost := rate * turnover
		result.Gross[i] = gross
		result.Turnover[i] = turnover
		result.Costs[i] = cost
		result.Net[i] = gross - cost
		prev = cur
	}
	return result, nil
}
