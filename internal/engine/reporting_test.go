package engine

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorbt/types"
)

func mustSeries(t *testing.T, values ...float64) *types.Series {
	t.Helper()
	s, err := types.NewSeries(testDates(len(values)), values)
	require.NoError(t, err)
	return s
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		cfg     func(*Config)
		want    types.Summary
	}{
		{
			name:    "flat series has undefined sharpe",
			returns: []float64{0, 0, 0, 0, 0},
			want:    types.Summary{AnnReturn: 0, AnnVol: 0, Sharpe: nan, MaxDD: 0, Obs: 5},
		},
		{
			name:    "empty series is undefined",
			returns: nil,
			want:    types.Summary{AnnReturn: nan, AnnVol: nan, Sharpe: nan, MaxDD: nan, Obs: 0},
		},
		{
			name:    "missing returns are dropped",
			returns: []float64{nan, nan},
			want:    types.Summary{AnnReturn: nan, AnnVol: nan, Sharpe: nan, MaxDD: nan, Obs: 0},
		},
		{
			name:    "up then down",
			returns: []float64{0.1, nan, -0.1},
			cfg:     func(c *Config) { c.PeriodsPerYear = 2 },
			want: types.Summary{
				AnnReturn: -0.01,
				AnnVol:    0.1 * math.Sqrt2,
				Sharpe:    0,
				MaxDD:     0.99/1.1 - 1,
				Obs:       2,
			},
		},
		{
			name:    "risk free is taken out per period",
			returns: []float64{0.01, 0.03},
			cfg: func(c *Config) {
				c.PeriodsPerYear = 1
				c.RiskFree = 0.01
			},
			want: types.Summary{
				AnnReturn: math.Sqrt(1.01*1.03) - 1,
				AnnVol:    0.01,
				Sharpe:    1,
				MaxDD:     0,
				Obs:       2,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			got := Summarize(mustSeries(t, tt.returns...), cfg)

			assert.Equal(t, tt.want.Obs, got.Obs)
			for i, s := range got.Stats() {
				want := tt.want.Stats()[i]
				if !want.Defined {
					assert.False(t, s.Defined, "%s should be undefined, got %v", s.Name, s.Value)
					continue
				}
				assert.InDelta(t, want.Value, s.Value, 1e-9, s.Name)
			}
		})
	}
}

func TestCalcMaxDrawdown_IsNeverPositive(t *testing.T) {
	cfg := DefaultConfig()
	got := Summarize(mustSeries(t, 0.05, 0.02, 0.01), cfg)
	assert.Equal(t, 0.0, got.MaxDD)

	got = Summarize(mustSeries(t, 0.5, -0.5, 0.5), cfg)
	assert.InDelta(t, -0.5, got.MaxDD, 1e-12)
}

func TestCalcMaxDrawdown_Wipeout(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
	}{
		{"first period", []float64{-1, 0.1, 0.2}},
		{"after a gain", []float64{0.2, -1, 0.5}},
		{"last period", []float64{0.1, 0.1, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(mustSeries(t, tt.returns...), DefaultConfig())
			assert.False(t, math.IsNaN(got.MaxDD))
			assert.InDelta(t, -1.0, got.MaxDD, 1e-12)
		})
	}
}

func TestPrintReport(t *testing.T) {
	result := &types.BacktestResult{
		Dates:    testDates(2),
		Gross:    []float64{0, 0.015},
		Turnover: []float64{0, 1},
		Costs:    []float64{0, 0.0005},
		Net:      []float64{0, 0.0145},
	}
	summary := types.Summary{AnnReturn: 0.123456, AnnVol: 0.2, Sharpe: nan, MaxDD: -0.05, Obs: 2}

	var buf bytes.Buffer
	printReport(&buf, "mom", result, summary)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "===== Backtest Summary (NET): mom ====="))
	assert.Contains(t, out, "2024-03-01 -> 2024-03-02")
	assert.Contains(t, out, "AnnReturn:     0.1235")
	assert.Contains(t, out, "AnnVol:        0.2000")
	assert.Contains(t, out, "Sharpe:        NaN")
	assert.Contains(t, out, "MaxDD:         -0.0500")
	assert.Contains(t, out, "Obs:           2")
	assert.Contains(t, out, "Total Costs:   0.0005")
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	err := writeSummaryJSON(&buf, types.Summary{AnnReturn: 0.1, AnnVol: 0, Sharpe: nan, MaxDD: 0, Obs: 3})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 0.1, got["AnnReturn"])
	assert.Nil(t, got["Sharpe"])
	assert.Contains(t, got, "Sharpe")
	assert.Equal(t, 3.0, got["Obs"])
}

func TestWriteResultCSV(t *testing.T) {
	result := &types.BacktestResult{
		Dates:    testDates(2),
		Gross:    []float64{0, 0.015},
		Turnover: []float64{0, 1},
		Costs:    []float64{0, 0.0005},
		Net:      []float64{0, 0.0145},
	}
	var buf bytes.Buffer
	require.NoError(t, writeResultCSV(&buf, result))

	want := "date,gross,turnover,costs,net\n" +
		"2024-03-01,0,0,0,0\n" +
		"2024-03-02,0.015,1,0.0005,0.0145\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteMatrixCSV_BlankForMissing(t *testing.T) {
	m := mustMatrix(t, []string{"AAA", "BBB"}, [][]float64{{0.5, nan}})
	var buf bytes.Buffer
	require.NoError(t, writeMatrixCSV(&buf, m))
	assert.Equal(t, "date,AAA,BBB\n2024-03-01,0.5,\n", buf.String())
}
