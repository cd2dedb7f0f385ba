package feed

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/markcheno/go-quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorbt/internal/logger"
)

var (
	start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
)

func fakeQuote(symbol string, closes ...float64) quote.Quote {
	q := quote.NewQuote(symbol, len(closes))
	for i, c := range closes {
		q.Date[i] = start.AddDate(0, 0, i).Add(14 * time.Hour)
		q.Close[i] = c
	}
	return q
}

func TestYahoo_LoadPrices(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	y := NewYahoo(logger.Nop())
	y.fetch = func(symbol, from, to string) (quote.Quote, error) {
		mu.Lock()
		requested = append(requested, symbol+" "+from+" "+to)
		mu.Unlock()
		switch symbol {
		case "AAPL":
			return fakeQuote(symbol, 100, 101, 102), nil
		case "MSFT":
			return fakeQuote(symbol, 200, 201), nil
		case "EMPTY":
			return quote.NewQuote(symbol, 0), nil
		default:
			return quote.Quote{}, errors.New("404")
		}
	}

	got, err := y.LoadPrices(context.Background(), []string{"AAPL", "BAD", "MSFT", "EMPTY"}, start, end)
	require.NoError(t, err)

	assert.Len(t, requested, 4)
	assert.Contains(t, requested, "AAPL 2024-01-02 2024-01-05")
	assert.Equal(t, []string{"AAPL", "MSFT"}, got.Columns())
	assert.Equal(t, 3, got.Len())
	// intraday stamps land on their calendar day
	assert.Equal(t, start, got.Date(0))
	assert.Equal(t, 201.0, got.Get(start.AddDate(0, 0, 1), "MSFT"))
	assert.True(t, math.IsNaN(got.Get(start.AddDate(0, 0, 2), "MSFT")))
}

func TestYahoo_LoadPrices_NoData(t *testing.T) {
	y := NewYahoo(nil)
	y.fetch = func(symbol, _, _ string) (quote.Quote, error) {
		return quote.Quote{}, errors.New("404")
	}
	_, err := y.LoadPrices(context.Background(), []string{"AAPL"}, start, end)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahoo_LoadPrices_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	y := NewYahoo(nil)
	y.fetch = func(symbol, _, _ string) (quote.Quote, error) {
		return fakeQuote(symbol, 1), nil
	}
	_, err := y.LoadPrices(ctx, []string{"AAPL", "MSFT"}, start, end)
	assert.ErrorIs(t, err, context.Canceled)
}

type mockBarsClient struct {
	bars  map[string][]marketdata.Bar
	err   error
	calls []marketdata.GetBarsRequest
	sizes []int
}

func (m *mockBarsClient) GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error) {
	m.calls = append(m.calls, req)
	m.sizes = append(m.sizes, len(symbols))
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string][]marketdata.Bar)
	for _, s := range symbols {
		if bars, ok := m.bars[s]; ok {
			out[s] = bars
		}
	}
	return out, nil
}

func dailyBar(d int, c float64) marketdata.Bar {
	// daily bars are stamped at midnight New York time
	return marketdata.Bar{Timestamp: start.AddDate(0, 0, d).Add(5 * time.Hour), Close: c}
}

func TestAlpaca_LoadPrices(t *testing.T) {
	client := &mockBarsClient{bars: map[string][]marketdata.Bar{
		"AAPL": {dailyBar(0, 100), dailyBar(1, 101)},
		"MSFT": {dailyBar(1, 200)},
	}}
	a := &Alpaca{client: client, feed: "iex", log: logger.Nop()}

	got, err := a.LoadPrices(context.Background(), []string{"AAPL", "MSFT", "GONE"}, start, end)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, got.Columns())
	assert.Equal(t, 2, got.Len())
	assert.Equal(t, 200.0, got.Get(start.AddDate(0, 0, 1), "MSFT"))

	require.Len(t, client.calls, 1)
	req := client.calls[0]
	assert.Equal(t, marketdata.OneDay, req.TimeFrame)
	assert.Equal(t, marketdata.All, req.Adjustment)
	assert.Equal(t, start, req.Start)
	assert.Equal(t, end, req.End)
}

func TestAlpaca_LoadPrices_Batches(t *testing.T) {
	tickers := make([]string, 250)
	bars := make(map[string][]marketdata.Bar)
	for i := range tickers {
		tickers[i] = "T" + string(rune('A'+i/26)) + string(rune('A'+i%26))
		bars[tickers[i]] = []marketdata.Bar{dailyBar(0, float64(i+1))}
	}
	client := &mockBarsClient{bars: bars}
	a := &Alpaca{client: client, log: logger.Nop()}

	got, err := a.LoadPrices(context.Background(), tickers, start, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, client.sizes)
	assert.Equal(t, 250, got.Width())
	assert.False(t, client.calls[0].End.IsZero(), "open end resolves to now")
}

func TestAlpaca_LoadPrices_Errors(t *testing.T) {
	apiErr := errors.New("forbidden")
	a := &Alpaca{client: &mockBarsClient{err: apiErr}, log: logger.Nop()}
	_, err := a.LoadPrices(context.Background(), []string{"AAPL"}, start, end)
	assert.ErrorIs(t, err, apiErr)

	a = &Alpaca{client: &mockBarsClient{}, log: logger.Nop()}
	_, err = a.LoadPrices(context.Background(), []string{"AAPL"}, start, end)
	assert.ErrorIs(t, err, ErrNoData)
}
