package engine

import (
	"context"
	"time"

	"factorbt/types"
)

type priceSource interface {
	LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*types.Matrix, error)
}

type factor interface {
	Name() string
	Compute(prices *types.Matrix) *types.Matrix
}

type runRecorder interface {
	SaveRun(ctx context.Context, run types.RunRecord) error
}
