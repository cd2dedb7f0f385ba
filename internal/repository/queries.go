package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type assetRow struct {
	ID         int32
	Ticker     string
	Name       string
	Type       string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

const getAssetByTicker = `
SELECT id, ticker, name, type, created_at, modified_at
FROM assets
WHERE ticker = $1
LIMIT 1`

func (q *queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	var a assetRow
	err := q.db.QueryRow(ctx, getAssetByTicker, ticker).Scan(
		&a.ID, &a.Ticker, &a.Name, &a.Type, &a.CreatedAt, &a.ModifiedAt,
	)
	return a, err
}

type getDailyClosesParams struct {
	AssetID   int32
	StartTime time.Time
	EndTime   time.Time
}

type dailyCloseRow struct {
	Bucket  time.Time
	AssetID int32
	Close   decimal.Decimal
}

// last close of every trading day in [start, end]
const getDailyCloses = `
SELECT time_bucket('1 day', timestamp) AS bucket, asset_id, last(close, timestamp) AS close
FROM candles
WHERE asset_id = $1 AND timestamp >= $2 AND timestamp <= $3
GROUP BY bucket, asset_id
ORDER BY bucket`

func (q *queries) GetDailyCloses(ctx context.Context, arg getDailyClosesParams) ([]dailyCloseRow, error) {
	rows, err := q.db.Query(ctx, getDailyCloses, arg.AssetID, arg.StartTime, arg.EndTime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (dailyCloseRow, error) {
		var r dailyCloseRow
		err := row.Scan(&r.Bucket, &r.AssetID, &r.Close)
		return r, err
	})
}
