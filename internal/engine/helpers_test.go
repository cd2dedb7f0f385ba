package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorbt/types"
)

var nan = math.NaN()

func testDate(d int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func testDates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = testDate(i)
	}
	return out
}

func testColumns(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('A' + i))
	}
	return out
}

func mustMatrix(t *testing.T, cols []string, rows [][]float64) *types.Matrix {
	t.Helper()
	m, err := types.NewMatrixFromRows(testDates(len(rows)), cols, rows)
	require.NoError(t, err)
	return m
}

func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for j := range want {
		if math.IsNaN(want[j]) {
			assert.True(t, math.IsNaN(got[j]), "index %d: want missing, got %v", j, got[j])
			continue
		}
		assert.InDelta(t, want[j], got[j], 1e-12, "index %d", j)
	}
}
