package types

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrUnsortedDates   = errors.New("dates must be strictly ascending")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrShapeMismatch   = errors.New("shape mismatch")
)

// Missing returns the value used for an absent cell.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is an absent cell.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Matrix is a date x instrument table. Rows are ordered by ascending, unique
// dates; columns are unique instrument identifiers. Missing cells hold NaN.
//
// Every transformation returns a new Matrix; Set is only meant for the stage
// that constructed the matrix.
type Matrix struct {
	dates   []time.Time
	columns []string
	colIdx  map[string]int
	values  [][]float64
}

// NewMatrix allocates a matrix with every cell missing.
func NewMatrix(dates []time.Time, columns []string) (*Matrix, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("%w: %s after %s", ErrUnsortedDates,
				dates[i].Format(time.DateOnly), dates[i-1].Format(time.DateOnly))
		}
	}
	colIdx := make(map[string]int, len(columns))
	for j, c := range columns {
		if _, ok := colIdx[c]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c)
		}
		colIdx[c] = j
	}

	m := &Matrix{
		dates:   append([]time.Time(nil), dates...),
		columns: append([]string(nil), columns...),
		colIdx:  colIdx,
		values:  make([][]float64, len(dates)),
	}
	for i := range m.values {
		m.values[i] = missingRow(len(columns))
	}
	return m, nil
}

// NewMatrixFromRows builds a matrix from row-major values. Each row must have
// one value per column.
func NewMatrixFromRows(dates []time.Time, columns []string, rows [][]float64) (*Matrix, error) {
	if len(rows) != len(dates) {
		return nil, fmt.Errorf("%w: %d rows for %d dates", ErrShapeMismatch, len(rows), len(dates))
	}
	m, err := NewMatrix(dates, columns)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d columns", ErrShapeMismatch, i, len(row), len(columns))
		}
		copy(m.values[i], row)
	}
	return m, nil
}

// emptyLike returns a matrix with the same columns and the given dates, all missing.
// The dates are trusted to be ascending.
func (m *Matrix) emptyLike(dates []time.Time) *Matrix {
	out := &Matrix{
		dates:   append([]time.Time(nil), dates...),
		columns: m.columns,
		colIdx:  m.colIdx,
		values:  make([][]float64, len(dates)),
	}
	for i := range out.values {
		out.values[i] = missingRow(len(m.columns))
	}
	return out
}

func missingRow(n int) []float64 {
	row := make([]float64, n)
	for j := range row {
		row[j] = math.NaN()
	}
	return row
}

// Len returns the number of dates.
func (m *Matrix) Len() int { return len(m.dates) }

// Width returns the number of instruments.
func (m *Matrix) Width() int { return len(m.columns) }

func (m *Matrix) Dates() []time.Time { return append([]time.Time(nil), m.dates...) }

func (m *Matrix) Columns() []string { return append([]string(nil), m.columns...) }

func (m *Matrix) Date(i int) time.Time { return m.dates[i] }

func (m *Matrix) At(i, j int) float64 { return m.values[i][j] }

func (m *Matrix) Set(i, j int, v float64) { m.values[i][j] = v }

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 { return append([]float64(nil), m.values[i]...) }

// Column returns a copy of column j across all dates.
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.dates))
	for i := range m.values {
		col[i] = m.values[i][j]
	}
	return col
}

func (m *Matrix) ColumnIndex(name string) (int, bool) {
	j, ok := m.colIdx[name]
	return j, ok
}

// DateIndex finds the row holding date t.
func (m *Matrix) DateIndex(t time.Time) (int, bool) {
	i := sort.Search(len(m.dates), func(i int) bool { return !m.dates[i].Before(t) })
	if i < len(m.dates) && m.dates[i].Equal(t) {
		return i, true
	}
	return 0, false
}

// Get returns the cell at (date, column), or missing when either key is absent.
func (m *Matrix) Get(t time.Time, column string) float64 {
	i, ok := m.DateIndex(t)
	if !ok {
		return math.NaN()
	}
	j, ok := m.colIdx[column]
	if !ok {
		return math.NaN()
	}
	return m.values[i][j]
}

func (m *Matrix) Clone() *Matrix {
	out := m.emptyLike(m.dates)
	for i := range m.values {
		copy(out.values[i], m.values[i])
	}
	return out
}

// RowEmpty reports whether every cell of row i is missing.
func (m *Matrix) RowEmpty(i int) bool {
	for _, v := range m.values[i] {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Align inner-joins two matrices on their dates. Columns are left untouched.
func Align(a, b *Matrix) (*Matrix, *Matrix) {
	var common []time.Time
	var ia, ib []int
	i, j := 0, 0
	for i < len(a.dates) && j < len(b.dates) {
		switch {
		case a.dates[i].Equal(b.dates[j]):
			common = append(common, a.dates[i])
			ia = append(ia, i)
			ib = append(ib, j)
			i++
			j++
		case a.dates[i].Before(b.dates[j]):
			i++
		default:
			j++
		}
	}
	return a.selectRows(common, ia), b.selectRows(common, ib)
}

func (m *Matrix) selectRows(dates []time.Time, idx []int) *Matrix {
	out := m.emptyLike(dates)
	for k, i := range idx {
		copy(out.values[k], m.values[i])
	}
	return out
}

// Reindex conforms the matrix to the given ascending dates. Rows for dates
// not present in m are missing.
func (m *Matrix) Reindex(dates []time.Time) *Matrix {
	out := m.emptyLike(dates)
	for k, t := range dates {
		if i, ok := m.DateIndex(t); ok {
			copy(out.values[k], m.values[i])
		}
	}
	return out
}

// DropEmptyRows removes dates on which every instrument is missing.
func (m *Matrix) DropEmptyRows() *Matrix {
	var dates []time.Time
	var idx []int
	for i := range m.values {
		if m.RowEmpty(i) {
			continue
		}
		dates = append(dates, m.dates[i])
		idx = append(idx, i)
	}
	return m.selectRows(dates, idx)
}

// DropEmptyColumns removes instruments that have no observation at all.
func (m *Matrix) DropEmptyColumns() *Matrix {
	var keep []int
	var columns []string
	for j, c := range m.columns {
		for i := range m.values {
			if !math.IsNaN(m.values[i][j]) {
				keep = append(keep, j)
				columns = append(columns, c)
				break
			}
		}
	}
	// a subset of unique columns over the same ascending dates
	out, _ := NewMatrix(m.dates, columns)
	for i := range m.values {
		for k, j := range keep {
			out.values[i][k] = m.values[i][j]
		}
	}
	return out
}

// Shift moves values forward by n periods along the date axis: the value at
// row i ends up at row i+n. Vacated leading rows are missing. A negative n
// shifts backwards.
func (m *Matrix) Shift(n int) *Matrix {
	out := m.emptyLike(m.dates)
	for i := range m.values {
		src := i - n
		if src < 0 || src >= len(m.values) {
			continue
		}
		copy(out.values[i], m.values[src])
	}
	return out
}

// Fill replaces every missing cell with v.
func (m *Matrix) Fill(v float64) *Matrix {
	out := m.Clone()
	for _, row := range out.values {
		for j := range row {
			if math.IsNaN(row[j]) {
				row[j] = v
			}
		}
	}
	return out
}

// PctChange computes p[t]/p[t-n]-1 per instrument. The result is missing when
// either price is missing or the earlier price is zero.
func (m *Matrix) PctChange(n int) *Matrix {
	out := m.emptyLike(m.dates)
	for i := n; i < len(m.values); i++ {
		for j, cur := range m.values[i] {
			prev := m.values[i-n][j]
			if math.IsNaN(cur) || math.IsNaN(prev) || prev == 0 {
				continue
			}
			out.values[i][j] = cur/prev - 1
		}
	}
	return out
}

// MapRows applies fn to a copy of every row (axis: across instruments, one
// date at a time). fn must return a row of the same width.
func (m *Matrix) MapRows(fn func(t time.Time, row []float64) []float64) *Matrix {
	out := m.emptyLike(m.dates)
	for i := range m.values {
		res := fn(m.dates[i], m.Row(i))
		copy(out.values[i], res)
	}
	return out
}

// MapColumns applies fn to every instrument's full history (axis: across
// dates, one instrument at a time).
func (m *Matrix) MapColumns(fn func(column string, values []float64) []float64) *Matrix {
	out := m.emptyLike(m.dates)
	for j, c := range m.columns {
		res := fn(c, m.Column(j))
		for i := range out.values {
			if i < len(res) {
				out.values[i][j] = res[i]
			}
		}
	}
	return out
}

// ReduceRows collapses each row to a scalar, producing one value per date.
func (m *Matrix) ReduceRows(fn func(row []float64) float64) *Series {
	values := make([]float64, len(m.values))
	for i := range m.values {
		values[i] = fn(m.Row(i))
	}
	return &Series{dates: append([]time.Time(nil), m.dates...), values: values}
}

// Observed drops the missing entries of a row, returning the surviving column
// positions and their values in column order.
func Observed(row []float64) ([]int, []float64) {
	idx := make([]int, 0, len(row))
	vals := make([]float64, 0, len(row))
	for j, v := range row {
		if math.IsNaN(v) {
			continue
		}
		idx = append(idx, j)
		vals = append(vals, v)
	}
	return idx, vals
}
