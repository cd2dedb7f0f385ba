package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"golang.org/x/sync/errgroup"

	"factorbt/types"
)

// PriceRecord is the on-disk schema of one daily close.
type PriceRecord struct {
	Ticker    string  `parquet:"ticker"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Close     float64 `parquet:"close"`
}

// ParquetStore keeps one file of daily closes per ticker:
// <DataDir>/<TICKER>.parquet
type ParquetStore struct {
	DataDir string
}

func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

func (s *ParquetStore) path(ticker string) string {
	return filepath.Join(s.DataDir, strings.ToUpper(ticker)+".parquet")
}

// SavePrices writes every column of prices to its ticker file, replacing any
// previous contents. Missing cells are not stored.
func (s *ParquetStore) SavePrices(prices *types.Matrix) error {
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return err
	}
	for j, ticker := range prices.Columns() {
		closes := prices.Column(j)
		records := make([]PriceRecord, 0, len(closes))
		for i, c := range closes {
			if types.IsMissing(c) {
				continue
			}
			records = append(records, PriceRecord{
				Ticker:    ticker,
				Timestamp: prices.Date(i).UnixMilli(),
				Close:     c,
			})
		}
		if err := parquet.WriteFile(s.path(ticker), records); err != nil {
			return fmt.Errorf("write %s: %w", ticker, err)
		}
	}
	return nil
}

// readTicker returns the stored closes of ticker, nil when it has no file.
func (s *ParquetStore) readTicker(ticker string) ([]PriceRecord, error) {
	rows, err := parquet.ReadFile[PriceRecord](s.path(ticker))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ticker, err)
	}
	return rows, nil
}

// LoadPrices reads the stored closes of tickers within [start, end]. A zero
// end is open ended. Tickers without a file are left out.
func (s *ParquetStore) LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error) {
	records := make([][]PriceRecord, len(tickers))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, ticker := range tickers {
		g.Go(func() error {
			rows, err := s.readTicker(ticker)
			records[i] = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := types.NewBuilder()
	for i, ticker := range tickers {
		for _, r := range records[i] {
			t := time.UnixMilli(r.Timestamp).UTC()
			if !inRange(t, start, end) {
				continue
			}
			b.Set(t, ticker, r.Close)
		}
	}
	if b.Len() == 0 {
		return nil, ErrNoPrices
	}
	return b.Build(), nil
}

// coverage returns the first and last stored day for ticker.
func (s *ParquetStore) coverage(ticker string) (first, last time.Time, ok bool, err error) {
	rows, err := s.readTicker(ticker)
	if err != nil || len(rows) == 0 {
		return first, last, false, err
	}
	for i, r := range rows {
		t := time.UnixMilli(r.Timestamp).UTC()
		if i == 0 || t.Before(first) {
			first = t
		}
		if i == 0 || t.After(last) {
			last = t
		}
	}
	return first, last, true, nil
}

func inRange(t, start, end time.Time) bool {
	d := types.Day(t)
	if !start.IsZero() && d.Before(types.Day(start)) {
		return false
	}
	if !end.IsZero() && d.After(types.Day(end)) {
		return false
	}
	return true
}
