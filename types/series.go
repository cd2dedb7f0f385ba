package types

import (
	"fmt"
	"math"
	"time"
)

// Series is a single date-indexed column.
type Series struct {
	dates  []time.Time
	values []float64
}

func NewSeries(dates []time.Time, values []float64) (*Series, error) {
	if len(dates) != len(values) {
		return nil, fmt.Errorf("%w: %d values for %d dates", ErrShapeMismatch, len(values), len(dates))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, ErrUnsortedDates
		}
	}
	return &Series{
		dates:  append([]time.Time(nil), dates...),
		values: append([]float64(nil), values...),
	}, nil
}

func (s *Series) Len() int { return len(s.values) }

func (s *Series) Dates() []time.Time { return append([]time.Time(nil), s.dates...) }

func (s *Series) Values() []float64 { return append([]float64(nil), s.values...) }

func (s *Series) Date(i int) time.Time { return s.dates[i] }

func (s *Series) At(i int) float64 { return s.values[i] }

// Observed returns the non-missing values in date order.
func (s *Series) Observed() []float64 {
	_, vals := Observed(s.values)
	return vals
}

// Equity compounds the series into a curve starting from 1.0. Missing
// returns count as flat periods.
func (s *Series) Equity() *Series {
	out := &Series{dates: s.Dates(), values: make([]float64, len(s.values))}
	equity := 1.0
	for i, r := range s.values {
		if !math.IsNaN(r) {
			equity *= 1 + r
		}
		out.values[i] = equity
	}
	return out
}
