package config

import (
	"context"
	"fmt"
	"io"
	"time"

	"factorbt/internal/feed"
	"factorbt/internal/logger"
	"factorbt/internal/repository"
	"factorbt/types"
)

type PriceSource interface {
	LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error)
}

// NewPriceSource builds the configured price source. Remote sources are
// wrapped in the Parquet cache when data.cache is set. The returned close
// func releases any connection and is never nil.
func NewPriceSource(ctx context.Context, c *Config, log *logger.Logger, progress io.Writer) (PriceSource, func(), error) {
	noop := func() {}
	if log == nil {
		log = logger.Nop()
	}

	var src PriceSource
	closeFn := noop
	switch c.Data.Source {
	case SourceYahoo:
		y := feed.NewYahoo(log)
		y.SetProgressWriter(progress)
		src = y
	case SourceAlpaca:
		src = feed.NewAlpaca(feed.AlpacaOptions{
			APIKey:    c.Alpaca.APIKey,
			APISecret: c.Alpaca.APISecret,
			BaseURL:   c.Alpaca.BaseURL,
			Feed:      c.Alpaca.Feed,
		}, log)
	case SourcePostgres:
		db, err := repository.NewDatabase(ctx, c.Data.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect database: %w", err)
		}
		db.SetProgressWriter(progress)
		src, closeFn = db, db.Close
	case SourceParquet:
		return repository.NewParquetStore(c.Data.ParquetDir), noop, nil
	case SourceCSV:
		return repository.NewCSVSource(c.Data.CSVPath), noop, nil
	default:
		return nil, noop, fmt.Errorf("%w %q", ErrUnknownSource, c.Data.Source)
	}

	if c.Data.Cache {
		log.Debug("price cache enabled", logger.String("dir", c.Data.ParquetDir))
		src = repository.NewCachedSource(src, repository.NewParquetStore(c.Data.ParquetDir))
	}
	return src, closeFn, nil
}
