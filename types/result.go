package types

import "time"

// BacktestResult holds the per-date output of a simulation. All slices share
// the Dates index.
type BacktestResult struct {
	Dates    []time.Time
	Gross    []float64
	Turnover []float64
	Costs    []float64
	Net      []float64
}

func (r *BacktestResult) Len() int { return len(r.Dates) }

// NetSeries returns the net return column as a Series.
func (r *BacktestResult) NetSeries() *Series {
	return &Series{
		dates:  append([]time.Time(nil), r.Dates...),
		values: append([]float64(nil), r.Net...),
	}
}
