package feed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/markcheno/go-quote"
	"golang.org/x/sync/errgroup"

	"factorbt/internal/logger"
	"factorbt/internal/progress"
	"factorbt/types"
)

const defaultYahooWorkers = 4

type quoteFetcher func(symbol, start, end string) (quote.Quote, error)

func fetchYahoo(symbol, start, end string) (quote.Quote, error) {
	return quote.NewQuoteFromYahoo(symbol, start, end, quote.Daily, true)
}

// Yahoo loads split and dividend adjusted closes from Yahoo Finance, a few
// tickers at a time.
type Yahoo struct {
	fetch    quoteFetcher
	workers  int
	progress io.Writer
	log      *logger.Logger
}

func NewYahoo(log *logger.Logger) *Yahoo {
	if log == nil {
		log = logger.Nop()
	}
	return &Yahoo{fetch: fetchYahoo, workers: defaultYahooWorkers, log: log}
}

// SetProgressWriter shows a download progress bar on w.
func (y *Yahoo) SetProgressWriter(w io.Writer) {
	y.progress = w
}

// LoadPrices downloads every ticker over [start, end]. Tickers that return
// nothing are skipped with a warning; ErrNoData when none return anything.
func (y *Yahoo) LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error) {
	from := start.Format(dateLayout)
	to := endOrNow(end).Format(dateLayout)

	quotes := make([]quote.Quote, len(tickers))
	bar := progress.New(len(tickers), "Downloading prices...", y.progress)
	defer bar.Finish()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(y.workers)
	for i, ticker := range tickers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			q, err := y.fetch(ticker, from, to)
			bar.Add(1)
			if err != nil {
				y.log.Warn("download failed", logger.String("ticker", ticker), logger.Error(err))
				return nil
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("yahoo: %w", err)
	}

	b := types.NewBuilder()
	for i, ticker := range tickers {
		q := quotes[i]
		if len(q.Date) == 0 {
			y.log.Warn("no prices", logger.String("ticker", ticker))
			continue
		}
		for k, d := range q.Date {
			if k < len(q.Close) {
				b.Set(d, ticker, q.Close[k])
			}
		}
	}
	if b.Len() == 0 {
		return nil, ErrNoData
	}
	return b.Build(), nil
}
