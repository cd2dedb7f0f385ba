package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"factorbt/internal/config"
	"factorbt/internal/engine"
	"factorbt/internal/logger"
	"factorbt/internal/repository"
	"factorbt/strategies/factors"
)

var runFlags struct {
	config  string
	factor  string
	start   string
	end     string
	tcBps   float64
	lag     int
	outdir  string
	source  string
	tickers string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a factor backtest",
	Long: "Download prices, build the factor signal, simulate the long/short book and " +
		"write backtest_<factor>.csv, stats_<factor>.json, equity_<factor>.csv and weights_<factor>.csv.",
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.config, "config", "", "YAML config file")
	f.StringVar(&runFlags.factor, "factor", "mom", "factor to backtest: mom, lowvol or reversal")
	f.StringVar(&runFlags.start, "start", "2015-01-01", "first date of the price history")
	f.StringVar(&runFlags.end, "end", "", "last date of the price history (default today)")
	f.Float64Var(&runFlags.tcBps, "tc_bps", 5.0, "transaction cost in basis points of turnover")
	f.IntVar(&runFlags.lag, "lag", 1, "periods between a weight decision and its application")
	f.StringVar(&runFlags.outdir, "outdir", "outputs", "directory for output files")
	f.StringVar(&runFlags.source, "source", "yahoo", "price source: yahoo, alpaca, postgres, parquet or csv")
	f.StringVar(&runFlags.tickers, "tickers", "", "comma separated tickers (default the built-in universe)")

	rootCmd.AddCommand(runCmd)
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("factor") {
		c.Strategy.Factor = runFlags.factor
	}
	if flags.Changed("start") {
		c.Data.Start = runFlags.start
	}
	if flags.Changed("end") {
		c.Data.End = runFlags.end
	}
	if flags.Changed("tc_bps") {
		c.Strategy.Engine.TcBps = runFlags.tcBps
	}
	if flags.Changed("lag") {
		c.Strategy.Engine.Lag = runFlags.lag
	}
	if flags.Changed("outdir") {
		c.Output.Dir = runFlags.outdir
	}
	if flags.Changed("source") {
		c.Data.Source = runFlags.source
	}
	if flags.Changed("tickers") {
		c.Universe.Tickers = config.SplitTickers(runFlags.tickers)
	}
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	c, err := config.Read(runFlags.config)
	if err != nil {
		return err
	}
	applyFlags(cmd, c)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	log, err := logger.New(&c.Logging)
	if err != nil {
		return err
	}
	f, err := factors.ByName(c.Strategy.Factor, c.Strategy.LowVolWindow)
	if err != nil {
		return err
	}
	start, end, err := c.Period()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	source, closeSource, err := config.NewPriceSource(ctx, c, log, os.Stderr)
	if err != nil {
		return err
	}
	defer closeSource()

	opts := []engine.Option{
		engine.WithOutput(cmd.OutOrStdout()),
		engine.WithReporting(engine.NewReportingConfig(c.Output.Dir, "", true)),
	}
	if c.Output.RunDB != "" {
		runs, err := repository.NewRunStore(ctx, c.Output.RunDB)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer runs.Close()
		opts = append(opts, engine.WithRunRecorder(runs))
	}

	log.Info("starting backtest",
		logger.String("factor", f.Name()),
		logger.String("source", c.Data.Source),
		logger.Int("tickers", len(c.Universe.Tickers)),
		logger.Time("start", start),
		logger.Float("tc_bps", c.Strategy.Engine.TcBps),
	)
	eng := engine.NewEngine(source, f, c.Strategy.Engine, log, opts...)
	report, err := eng.Run(ctx, c.Universe.Tickers, start, end)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, path := range report.Artifacts {
		fmt.Fprintf(out, "Saved: %s\n", path)
	}
	return nil
}
