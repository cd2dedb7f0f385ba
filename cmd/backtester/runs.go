package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"factorbt/internal/repository"
	"factorbt/types"
)

var runsFlags struct {
	db    string
	limit int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the run history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := repository.NewRunStore(cmd.Context(), runsFlags.db)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context(), runsFlags.limit)
		if err != nil {
			return err
		}
		printRuns(cmd, runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsFlags.db, "db", "outputs/runs.db", "run history database")
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "number of runs to show, 0 for all")
	rootCmd.AddCommand(runsCmd)
}

func printRuns(cmd *cobra.Command, runs []types.RunRecord) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tFACTOR\tSTART\tEND\tTC_BPS\tLAG\tANN_RETURN\tSHARPE\tMAX_DD\tOBS")
	for _, r := range runs {
		end := "open"
		if !r.End.IsZero() {
			end = r.End.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%d\t%s\t%s\t%s\t%d\n",
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Factor,
			r.Start.Format("2006-01-02"),
			end,
			r.TcBps,
			r.Lag,
			fmtStat(r.Summary.AnnReturn),
			fmtStat(r.Summary.Sharpe),
			fmtStat(r.Summary.MaxDD),
			r.Summary.Obs,
		)
	}
	w.Flush()
}

func fmtStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", v)
}
