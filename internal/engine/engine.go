package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"factorbt/internal/logger"
	"factorbt/types"
)

// Engine runs the factor pipeline: prices -> returns -> factor -> signal ->
// weights -> backtest -> statistics.
type Engine struct {
	source    priceSource
	factor    factor
	config    Config
	reporting *ReportingConfig
	recorder  runRecorder
	log       *logger.Logger
	out       io.Writer
}

// Report collects every intermediate and final product of a run.
type Report struct {
	Name      string
	Prices    *types.Matrix
	Returns   *types.Matrix
	Signal    *types.Matrix
	Weights   *types.Matrix
	Result    *types.BacktestResult
	Summary   types.Summary
	Equity    *types.Series
	Artifacts []string
}

type Option func(*Engine)

// WithRunRecorder stores a history row after every successful run.
func WithRunRecorder(r runRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithOutput redirects the printed summary (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// WithReporting enables writing CSV/JSON artifacts.
func WithReporting(rc *ReportingConfig) Option {
	return func(e *Engine) { e.reporting = rc }
}

func NewEngine(source priceSource, f factor, cfg Config, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		source: source,
		factor: f,
		config: cfg,
		log:    log,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run loads prices for tickers over [start, end] and backtests the factor.
// Configuration problems are reported before any data is requested.
func (e *Engine) Run(ctx context.Context, tickers []string, start, end time.Time) (*Report, error) {
	if len(tickers) == 0 {
		return nil, ErrEmptyUniverse
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	log := e.log.With(logger.String("factor", e.factor.Name()))
	began := time.Now()
	prices, err := e.source.LoadPrices(ctx, tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	log.Info("prices loaded",
		logger.Int("dates", prices.Len()),
		logger.Int("instruments", prices.Width()),
		logger.Duration("took", time.Since(began)),
	)
	if missing := missingTickers(tickers, prices); len(missing) > 0 {
		log.Warn("tickers without prices", logger.Strings("tickers", missing))
	}

	report := e.run(prices, log)
	log.Info("backtest finished",
		logger.Int("obs", report.Summary.Obs),
		logger.Float("ann_return", report.Summary.AnnReturn),
		logger.Float("sharpe", report.Summary.Sharpe),
	)

	if e.reporting != nil {
		paths, err := e.writeReports(report, log)
		if err != nil {
			return report, err
		}
		report.Artifacts = paths
		if e.reporting.printStats {
			printReport(e.out, report.Name, report.Result, report.Summary)
		}
	}

	if e.recorder != nil {
		run := types.RunRecord{
			Factor:    report.Name,
			Start:     start,
			End:       end,
			Tickers:   tickers,
			TcBps:     e.config.TcBps,
			Lag:       e.config.Lag,
			Summary:   report.Summary,
			CreatedAt: time.Now().UTC(),
		}
		if err := e.recorder.SaveRun(ctx, run); err != nil {
			return report, fmt.Errorf("save run: %w", err)
		}
	}
	return report, nil
}

// run is the pure part of the pipeline: it does no I/O.
func (e *Engine) run(prices *types.Matrix, log *logger.Logger) *Report {
	returns := prices.PctChange(1).DropEmptyRows()

	raw := e.factor.Compute(prices)
	signal := NormalizeSignal(raw).Reindex(returns.Dates()).DropEmptyRows()

	weights := BuildWeights(signal, e.config)
	var traded int
	for i := 0; i < weights.Len(); i++ {
		if !weights.RowEmpty(i) {
			traded++
		}
	}
	log.Debug("weights built",
		logger.Int("signal_dates", signal.Len()),
		logger.Int("traded_dates", traded),
	)

	// lag was validated with the rest of the config
	result, _ := RunBacktest(returns, weights, e.config)
	net := result.NetSeries()

	return &Report{
		Name:    e.factor.Name(),
		Prices:  prices,
		Returns: returns,
		Signal:  signal,
		Weights: weights,
		Result:  result,
		Summary: Summarize(net, e.config),
		Equity:  net.Equity(),
	}
}

func (e *Engine) writeReports(report *Report, log *logger.Logger) ([]string, error) {
	name := e.reporting.reportName
	if name == "" {
		name = report.Name
	}
	dir := e.reporting.outDir

	outputs := []struct {
		file  string
		write func(io.Writer) error
	}{
		{"backtest_" + name + ".csv", func(w io.Writer) error { return writeResultCSV(w, report.Result) }},
		{"stats_" + name + ".json", func(w io.Writer) error { return writeSummaryJSON(w, report.Summary) }},
		{"equity_" + name + ".csv", func(w io.Writer) error { return writeSeriesCSV(w, "equity", report.Equity) }},
		{"weights_" + name + ".csv", func(w io.Writer) error { return writeMatrixCSV(w, report.Weights) }},
	}

	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Join(dir, o.file)
		if err := writeFile(path, o.write); err != nil {
			return paths, err
		}
		log.Info("saved", logger.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func missingTickers(tickers []string, prices *types.Matrix) []string {
	var missing []string
	for _, t := range tickers {
		if _, ok := prices.ColumnIndex(t); !ok {
			missing = append(missing, t)
		}
	}
	return missing
}
