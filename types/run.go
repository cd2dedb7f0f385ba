package types

import "time"

// RunRecord describes one completed backtest for the run history.
type RunRecord struct {
	Factor    string
	Start     time.Time
	End       time.Time
	Tickers   []string
	TcBps     float64
	Lag       int
	Summary   Summary
	CreatedAt time.Time
}
