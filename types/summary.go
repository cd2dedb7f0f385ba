package types

import (
	"encoding/json"
	"math"
)

// Summary is the fixed set of performance statistics for a return series.
// Undefined statistics hold NaN; Obs is always defined.
type Summary struct {
	AnnReturn float64
	AnnVol    float64
	Sharpe    float64
	MaxDD     float64
	Obs       int
}

// Stat is one named entry of a Summary.
type Stat struct {
	Name    string
	Value   float64
	Defined bool
}

// Stats lists the statistics in their canonical order.
func (s Summary) Stats() []Stat {
	return []Stat{
		{"AnnReturn", s.AnnReturn, !math.IsNaN(s.AnnReturn)},
		{"AnnVol", s.AnnVol, !math.IsNaN(s.AnnVol)},
		{"Sharpe", s.Sharpe, !math.IsNaN(s.Sharpe)},
		{"MaxDD", s.MaxDD, !math.IsNaN(s.MaxDD)},
		{"Obs", float64(s.Obs), true},
	}
}

type summaryJSON struct {
	AnnReturn *float64 `json:"AnnReturn"`
	AnnVol    *float64 `json:"AnnVol"`
	Sharpe    *float64 `json:"Sharpe"`
	MaxDD     *float64 `json:"MaxDD"`
	Obs       int      `json:"Obs"`
}

// MarshalJSON writes a flat object; undefined statistics become null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{
		AnnReturn: definedOrNil(s.AnnReturn),
		AnnVol:    definedOrNil(s.AnnVol),
		Sharpe:    definedOrNil(s.Sharpe),
		MaxDD:     definedOrNil(s.MaxDD),
		Obs:       s.Obs,
	})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw summaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.AnnReturn = nilToNaN(raw.AnnReturn)
	s.AnnVol = nilToNaN(raw.AnnVol)
	s.Sharpe = nilToNaN(raw.Sharpe)
	s.MaxDD = nilToNaN(raw.MaxDD)
	s.Obs = raw.Obs
	return nil
}

func definedOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nilToNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
