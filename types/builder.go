package types

import (
	"time"

	"github.com/google/btree"
)

// Builder assembles a Matrix from observations arriving in any order, such as
// one ticker's price history at a time. Dates are normalised to UTC calendar days.
type Builder struct {
	columns []string
	colIdx  map[string]int
	dates   *btree.BTreeG[time.Time]
	cells   map[cellKey]float64
}

type cellKey struct {
	day int64
	col int
}

// NewBuilder starts a matrix with the given columns, in that order.
func NewBuilder(columns ...string) *Builder {
	b := &Builder{
		colIdx: make(map[string]int),
		dates:  btree.NewG[time.Time](32, func(a, b time.Time) bool { return a.Before(b) }),
		cells:  make(map[cellKey]float64),
	}
	for _, c := range columns {
		b.AddColumn(c)
	}
	return b
}

// AddColumn registers a column if it is not already known.
func (b *Builder) AddColumn(name string) int {
	if j, ok := b.colIdx[name]; ok {
		return j
	}
	b.colIdx[name] = len(b.columns)
	b.columns = append(b.columns, name)
	return len(b.columns) - 1
}

// Set records a value. Later writes to the same cell win.
func (b *Builder) Set(t time.Time, column string, v float64) {
	day := Day(t)
	j := b.AddColumn(column)
	b.dates.ReplaceOrInsert(day)
	b.cells[cellKey{day: day.Unix(), col: j}] = v
}

// Len returns the number of distinct dates seen so far.
func (b *Builder) Len() int { return b.dates.Len() }

// Build materialises the matrix. Unset cells are missing.
func (b *Builder) Build() *Matrix {
	dates := make([]time.Time, 0, b.dates.Len())
	b.dates.Ascend(func(t time.Time) bool {
		dates = append(dates, t)
		return true
	})

	// dates come out of the tree unique and ascending; columns are unique by construction
	m, _ := NewMatrix(dates, b.columns)
	for i, t := range dates {
		for j := range b.columns {
			if v, ok := b.cells[cellKey{day: t.Unix(), col: j}]; ok {
				m.values[i][j] = v
			}
		}
	}
	return m
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
