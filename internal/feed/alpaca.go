package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"factorbt/internal/logger"
	"factorbt/types"
)

const alpacaBatchSize = 100

type barsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// AlpacaOptions configures the market data client.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Feed      string
}

// Alpaca loads fully adjusted daily bars from the Alpaca market data API.
type Alpaca struct {
	client barsClient
	feed   marketdata.Feed
	log    *logger.Logger
}

func NewAlpaca(opts AlpacaOptions, log *logger.Logger) *Alpaca {
	if log == nil {
		log = logger.Nop()
	}
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.BaseURL != "" {
		clientOpts.BaseURL = opts.BaseURL
	}
	return &Alpaca{
		client: marketdata.NewClient(clientOpts),
		feed:   marketdata.Feed(opts.Feed),
		log:    log,
	}
}

func (a *Alpaca) LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error) {
	end = endOrNow(end)

	b := types.NewBuilder()
	for _, ticker := range tickers {
		b.AddColumn(strings.ToUpper(ticker))
	}
	for lo := 0; lo < len(tickers); lo += alpacaBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := min(lo+alpacaBatchSize, len(tickers))

		began := time.Now()
		multiBars, err := a.client.GetMultiBars(tickers[lo:hi], marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Adjustment: marketdata.All,
			Start:      start,
			End:        end,
			Feed:       a.feed,
		})
		if err != nil {
			return nil, fmt.Errorf("GetMultiBars: %w", err)
		}
		a.log.Debug("bars fetched",
			logger.Int("symbols", hi-lo),
			logger.Duration("took", time.Since(began)),
		)

		for symbol, bars := range multiBars {
			for _, bar := range bars {
				b.Set(bar.Timestamp, strings.ToUpper(symbol), bar.Close)
			}
		}
	}
	if b.Len() == 0 {
		return nil, ErrNoData
	}
	return b.Build().DropEmptyColumns(), nil
}
