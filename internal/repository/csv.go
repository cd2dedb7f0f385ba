package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"factorbt/types"
)

// CSVSource reads a wide price file: a date column followed by one close
// column per ticker. Blank cells are missing.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (c *CSVSource) LoadPrices(_ context.Context, tickers []string, start, end time.Time) (*types.Matrix, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPricesCSV(f, tickers, start, end)
}

// ReadPricesCSV parses a wide price table, keeping only tickers (all columns
// when tickers is empty) and dates within [start, end]. A zero bound is open.
func ReadPricesCSV(r io.Reader, tickers []string, start, end time.Time) (*types.Matrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a date column and at least one ticker, got %v", header)
	}

	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[strings.ToUpper(t)] = true
	}
	b := types.NewBuilder()
	keep := make([]bool, len(header))
	for j := 1; j < len(header); j++ {
		name := strings.ToUpper(strings.TrimSpace(header[j]))
		header[j] = name
		keep[j] = len(want) == 0 || want[name]
	}
	// columns follow the requested order, or the file's when nothing was asked for
	for _, t := range tickers {
		for j := 1; j < len(header); j++ {
			if header[j] == strings.ToUpper(t) {
				b.AddColumn(header[j])
			}
		}
	}
	if len(want) == 0 {
		for j := 1; j < len(header); j++ {
			b.AddColumn(header[j])
		}
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		date, err := dateparse.ParseIn(strings.TrimSpace(record[0]), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date %q: %w", line, record[0], err)
		}
		if !inRange(date, start, end) {
			continue
		}
		for j := 1; j < len(record) && j < len(header); j++ {
			if !keep[j] {
				continue
			}
			cell := strings.TrimSpace(record[j])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[j], err)
			}
			b.Set(date, header[j], v)
		}
	}
	if b.Len() == 0 {
		return nil, ErrNoPrices
	}
	return b.Build(), nil
}
