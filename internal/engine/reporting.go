package engine

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"factorbt/types"
)

// Summarize reduces a return series to its performance statistics. Missing
// returns are dropped first; Obs counts what is left.
func Summarize(returns *types.Series, cfg Config) types.Summary {
	r := returns.Observed()
	ppy := float64(cfg.PeriodsPerYear)

	summary := types.Summary{Obs: len(r)}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		summary.AnnReturn = calcAnnReturn(r, ppy, &wg)
	}()
	go func() {
		summary.AnnVol = calcAnnVol(r, ppy, &wg)
	}()
	go func() {
		summary.Sharpe = calcSharpe(r, cfg.RiskFree, ppy, &wg)
	}()
	go func() {
		summary.MaxDD = calcMaxDrawdown(r, &wg)
	}()
	wg.Wait()

	return summary
}

// calcAnnReturn compounds the sample and annualises it:
// prod(1+r)^(ppy/n) - 1.
func calcAnnReturn(r []float64, ppy float64, wg *sync.WaitGroup) float64 {
	defer wg.Done()
	if len(r) == 0 {
		return math.NaN()
	}
	growth := 1.0
	for _, x := range r {
		growth *= 1 + x
	}
	return math.Pow(growth, ppy/float64(len(r))) - 1
}

func calcAnnVol(r []float64, ppy float64, wg *sync.WaitGroup) float64 {
	defer wg.Done()
	if len(r) == 0 {
		return math.NaN()
	}
	_, sd := meanStd(r)
	return sd * math.Sqrt(ppy)
}

// calcSharpe uses per-period excess returns r - rf/ppy and the population
// standard deviation. Zero volatility leaves it undefined.
func calcSharpe(r []float64, rf, ppy float64, wg *sync.WaitGroup) float64 {
	defer wg.Done()
	if len(r) == 0 {
		return math.NaN()
	}
	excess := make([]float64, len(r))
	for i, x := range r {
		excess[i] = x - rf/ppy
	}
	mean, sd := meanStd(excess)
	if sd == 0 {
		return math.NaN()
	}
	return mean / sd * math.Sqrt(ppy)
}

// calcMaxDrawdown is the lowest equity/peak - 1, equity compounding from 1.0.
// The peak starts at the first equity point. While no positive peak exists
// the drawdown is measured against the starting capital, so a wipeout is -1.
func calcMaxDrawdown(r []float64, wg *sync.WaitGroup) float64 {
	defer wg.Done()
	if len(r) == 0 {
		return math.NaN()
	}
	equity := 1.0
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, x := range r {
		equity *= 1 + x
		if equity > peak {
			peak = equity
		}
		dd := equity - 1
		if peak > 0 {
			dd = equity/peak - 1
		}
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func printReport(w io.Writer, name string, result *types.BacktestResult, summary types.Summary) {
	fmt.Fprintf(w, "===== Backtest Summary (NET): %s =====\n", name)
	if result.Len() > 0 {
		fmt.Fprintf(w, "Period:        %s -> %s\n",
			result.Dates[0].Format("2006-01-02"), result.Dates[result.Len()-1].Format("2006-01-02"))
	}
	var totalCosts float64
	for _, c := range result.Costs {
		totalCosts += c
	}

	for _, s := range summary.Stats() {
		if s.Name == "Obs" {
			fmt.Fprintf(w, "%-14s %d\n", s.Name+":", summary.Obs)
			continue
		}
		fmt.Fprintf(w, "%-14s %s\n", s.Name+":", formatStat(s))
	}
	fmt.Fprintf(w, "%-14s %s\n", "Total Costs:", decimal.NewFromFloat(totalCosts).Round(6))
	fmt.Fprintln(w, "==========================")
}

func formatStat(s types.Stat) string {
	if !s.Defined || math.IsInf(s.Value, 0) {
		return "NaN"
	}
	return decimal.NewFromFloat(s.Value).StringFixed(4)
}
