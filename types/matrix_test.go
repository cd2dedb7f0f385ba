package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func days(ds ...int) []time.Time {
	out := make([]time.Time, len(ds))
	for i, d := range ds {
		out[i] = day(d)
	}
	return out
}

func mustMatrix(t *testing.T, dates []time.Time, cols []string, rows [][]float64) *Matrix {
	t.Helper()
	m, err := NewMatrixFromRows(dates, cols, rows)
	require.NoError(t, err)
	return m
}

func assertRow(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for j := range want {
		if math.IsNaN(want[j]) {
			assert.True(t, math.IsNaN(got[j]), "col %d: want missing, got %v", j, got[j])
			continue
		}
		assert.InDelta(t, want[j], got[j], 1e-12, "col %d", j)
	}
}

func TestNewMatrix_Validation(t *testing.T) {
	tests := []struct {
		name    string
		dates   []time.Time
		cols    []string
		wantErr error
	}{
		{"ascending dates ok", days(1, 2, 3), []string{"A", "B"}, nil},
		{"duplicate date", days(1, 1), []string{"A"}, ErrUnsortedDates},
		{"descending date", days(2, 1), []string{"A"}, ErrUnsortedDates},
		{"duplicate column", days(1), []string{"A", "A"}, ErrDuplicateColumn},
		{"empty matrix ok", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatrix(tt.dates, tt.cols)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for i := 0; i < m.Len(); i++ {
				assert.True(t, m.RowEmpty(i))
			}
		})
	}
}

func TestNewMatrixFromRows_ShapeMismatch(t *testing.T) {
	_, err := NewMatrixFromRows(days(1, 2), []string{"A"}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = NewMatrixFromRows(days(1), []string{"A", "B"}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestAlign_InnerJoinOnDates(t *testing.T) {
	a := mustMatrix(t, days(1, 2, 3, 5), []string{"A"}, [][]float64{{1}, {2}, {3}, {5}})
	b := mustMatrix(t, days(2, 3, 4, 5), []string{"B", "C"}, [][]float64{{20, 21}, {30, 31}, {40, 41}, {50, 51}})

	ga, gb := Align(a, b)

	assert.Equal(t, days(2, 3, 5), ga.Dates())
	assert.Equal(t, days(2, 3, 5), gb.Dates())
	assert.Equal(t, []string{"A"}, ga.Columns())
	assert.Equal(t, []string{"B", "C"}, gb.Columns())
	assertRow(t, []float64{2, 3, 5}, ga.Column(0))
	assertRow(t, []float64{50, 51}, gb.Row(2))
}

func TestShift(t *testing.T) {
	m := mustMatrix(t, days(1, 2, 3), []string{"A", "B"}, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	tests := []struct {
		name string
		n    int
		want [][]float64
	}{
		{"zero lag is identity", 0, [][]float64{{1, 2}, {3, 4}, {5, 6}}},
		{"one period forward", 1, [][]float64{{nan, nan}, {1, 2}, {3, 4}}},
		{"two periods forward", 2, [][]float64{{nan, nan}, {nan, nan}, {1, 2}}},
		{"beyond length", 5, [][]float64{{nan, nan}, {nan, nan}, {nan, nan}}},
		{"backwards", -1, [][]float64{{3, 4}, {5, 6}, {nan, nan}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Shift(tt.n)
			assert.Equal(t, m.Dates(), got.Dates())
			for i := range tt.want {
				assertRow(t, tt.want[i], got.Row(i))
			}
		})
	}
	// source untouched
	assertRow(t, []float64{1, 2}, m.Row(0))
}

func TestFillReindexDropEmpty(t *testing.T) {
	m := mustMatrix(t, days(1, 2, 3), []string{"A", "B"}, [][]float64{{1, nan}, {nan, nan}, {5, 6}})

	filled := m.Fill(0)
	assertRow(t, []float64{1, 0}, filled.Row(0))
	assertRow(t, []float64{0, 0}, filled.Row(1))
	assert.True(t, math.IsNaN(m.At(0, 1)), "Fill must not mutate its receiver")

	dropped := m.DropEmptyRows()
	assert.Equal(t, days(1, 3), dropped.Dates())

	re := m.Reindex(days(2, 3, 4))
	assert.Equal(t, days(2, 3, 4), re.Dates())
	assert.True(t, re.RowEmpty(0))
	assertRow(t, []float64{5, 6}, re.Row(1))
	assert.True(t, re.RowEmpty(2))
}

func TestPctChange(t *testing.T) {
	m := mustMatrix(t, days(1, 2, 3, 4), []string{"A", "B"}, [][]float64{
		{100, 0},
		{110, 10},
		{nan, 20},
		{121, 10},
	})
	got := m.PctChange(1)
	assert.True(t, got.RowEmpty(0))
	assertRow(t, []float64{0.1, nan}, got.Row(1))
	assertRow(t, []float64{nan, 1}, got.Row(2))
	assertRow(t, []float64{nan, -0.5}, got.Row(3))

	two := m.PctChange(2)
	assertRow(t, []float64{nan, nan}, two.Row(1))
	assertRow(t, []float64{0.1, 0}, two.Row(3))
}

func TestReduceRowsAndObserved(t *testing.T) {
	m := mustMatrix(t, days(1, 2), []string{"A", "B", "C"}, [][]float64{{1, nan, 3}, {nan, nan, nan}})
	counts := m.ReduceRows(func(row []float64) float64 {
		idx, _ := Observed(row)
		return float64(len(idx))
	})
	assert.Equal(t, []float64{2, 0}, counts.Values())

	idx, vals := Observed(m.Row(0))
	assert.Equal(t, []int{0, 2}, idx)
	assert.Equal(t, []float64{1, 3}, vals)
}

func TestGetAndDateIndex(t *testing.T) {
	m := mustMatrix(t, days(1, 3), []string{"A"}, [][]float64{{1}, {3}})
	assert.Equal(t, 3.0, m.Get(day(3), "A"))
	assert.True(t, math.IsNaN(m.Get(day(2), "A")))
	assert.True(t, math.IsNaN(m.Get(day(3), "Z")))

	_, ok := m.DateIndex(day(2))
	assert.False(t, ok)
}

func TestBuilder_OrdersDatesAndKeepsColumnOrder(t *testing.T) {
	b := NewBuilder("MSFT", "AAPL")
	b.Set(time.Date(2024, 1, 3, 21, 0, 0, 0, time.UTC), "AAPL", 3)
	b.Set(day(1), "MSFT", 1)
	b.Set(day(2), "AAPL", 2)
	b.Set(day(1), "NVDA", 7)
	b.Set(day(2), "AAPL", 2.5)

	m := b.Build()
	assert.Equal(t, days(1, 2, 3), m.Dates())
	assert.Equal(t, []string{"MSFT", "AAPL", "NVDA"}, m.Columns())
	assertRow(t, []float64{1, nan, 7}, m.Row(0))
	assertRow(t, []float64{nan, 2.5, nan}, m.Row(1))
	assertRow(t, []float64{nan, 3, nan}, m.Row(2))
}

func TestSeriesEquity(t *testing.T) {
	s, err := NewSeries(days(1, 2, 3, 4), []float64{0.1, nan, -0.5, 1})
	require.NoError(t, err)

	eq := s.Equity()
	assertRow(t, []float64{1.1, 1.1, 0.55, 1.1}, eq.Values())
	assert.Equal(t, []float64{0.1, -0.5, 1}, s.Observed())
}

func TestDropEmptyColumns(t *testing.T) {
	m := mustMatrix(t, days(1, 2), []string{"A", "B", "C"}, [][]float64{{1, nan, nan}, {nan, nan, 3}})

	got := m.DropEmptyColumns()
	assert.Equal(t, []string{"A", "C"}, got.Columns())
	assertRow(t, []float64{1, nan}, got.Row(0))
	assertRow(t, []float64{nan, 3}, got.Row(1))
	_, ok := got.ColumnIndex("B")
	assert.False(t, ok)
}
