package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"factorbt/internal/progress"
	"factorbt/types"
)

// GetDailyCloses returns one close per trading day for an asset, oldest first.
func (db *Database) GetDailyCloses(ctx context.Context, assetId int, ticker string, start, end time.Time) ([]types.Candle, error) {
	args := getDailyClosesParams{
		AssetID:   int32(assetId),
		StartTime: start,
		EndTime:   end,
	}
	rows, err := db.candles.GetDailyCloses(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoCandles
	}
	return convertCandles(rows, ticker), nil
}

func convertCandles(rows []dailyCloseRow, ticker string) []types.Candle {
	candles := make([]types.Candle, 0, len(rows))
	for _, dao := range rows {
		candles = append(candles, types.Candle{
			AssetId:   int(dao.AssetID),
			Ticker:    ticker,
			Close:     dao.Close,
			Timestamp: dao.Bucket,
		})
	}
	return candles
}

// LoadPrices builds the close matrix for tickers over [start, end]. Tickers
// unknown to the database or without candles in range are left out; if none
// remain the result is ErrNoPrices.
func (db *Database) LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error) {
	bar := progress.New(len(tickers), "Loading prices...", db.progress)
	defer bar.Finish()

	b := types.NewBuilder()
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar.Add(1)

		asset, err := db.GetAssetByTicker(ctx, ticker)
		if errors.Is(err, ErrAssetNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", ticker, err)
		}
		candles, err := db.GetDailyCloses(ctx, asset.Id, ticker, start, end)
		if errors.Is(err, ErrNoCandles) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("candles %s: %w", ticker, err)
		}

		b.AddColumn(ticker)
		for _, c := range candles {
			// buckets are UTC midnights; pgx hands them back in local time
			b.Set(c.Timestamp.UTC(), ticker, c.Close.InexactFloat64())
		}
	}
	if b.Len() == 0 {
		return nil, ErrNoPrices
	}
	return b.Build(), nil
}
