package engine

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"factorbt/types"
)

const dateLayout = "2006-01-02"

// writeResultCSV writes the backtest table to any io.Writer as CSV, keyed by
// date with columns gross, turnover, costs, net.
func writeResultCSV(w io.Writer, result *types.BacktestResult) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"date", "gross", "turnover", "costs", "net"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, d := range result.Dates {
		record := []string{
			d.Format(dateLayout),
			formatFloat(result.Gross[i]),
			formatFloat(result.Turnover[i]),
			formatFloat(result.Costs[i]),
			formatFloat(result.Net[i]),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// writeMatrixCSV writes a date x instrument matrix; missing cells are blank.
func writeMatrixCSV(w io.Writer, m *types.Matrix) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append([]string{"date"}, m.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < m.Len(); i++ {
		record := make([]string, 0, m.Width()+1)
		record = append(record, m.Date(i).Format(dateLayout))
		for _, v := range m.Row(i) {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// writeSeriesCSV writes a single named column keyed by date.
func writeSeriesCSV(w io.Writer, name string, s *types.Series) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"date", name}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < s.Len(); i++ {
		if err := cw.Write([]string{s.Date(i).Format(dateLayout), formatFloat(s.At(i))}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// writeSummaryJSON writes the statistics as an indented flat object.
func writeSummaryJSON(w io.Writer, summary types.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
