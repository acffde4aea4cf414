package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/tyler180/allstar-rosters/internal/databank"
	"github.com/tyler180/allstar-rosters/internal/export"
	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

const (
	keyColumn       = "bb_key"
	correlationFile = "databank_correlation_analysis.csv"
	heatmapTitle    = "Correlation Matrix: MLB All-Star Roster Analysis | Baseball Databank"
)

// Paths resolves output locations; config.Config satisfies it.
type Paths interface {
	PlotPath(name string) string
	DataPath(name string) string
}

// Report lists what a run produced.
type Report struct {
	Correlations []Correlation
	TopFields    []string
	Plots        []string
	Data         []string
}

func (r *Report) sort() {
	sort.Strings(r.Plots)
	sort.Strings(r.Data)
}

type Runner struct {
	Plan  Plan
	Paths Paths
	Log   *logging.Logger
}

func (r *Runner) logger() *logging.Logger {
	if r.Log == nil {
		return logging.Default()
	}
	return r.Log
}

// Run reproduces the All-Star report over a player-season table:
// correlation analysis, histograms, scatterplots, barplots and
// comparative statistics.
func (r *Runner) Run(ctx context.Context, master *frame.Frame) (*Report, error) {
	start := time.Now()
	num, err := databank.Numerical(master)
	if err != nil {
		return nil, errors.Wrap(err, "numerical subset")
	}
	cat, err := databank.Categorical(master)
	if err != nil {
		return nil, errors.Wrap(err, "categorical subset")
	}
	num = num.Drop(keyColumn)
	cat = cat.Drop(keyColumn)

	rep := &Report{}
	if err := r.correlations(num, rep); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	add := func(plot bool, path string) {
		mu.Lock()
		defer mu.Unlock()
		if plot {
			rep.Plots = append(rep.Plots, path)
		} else {
			rep.Data = append(rep.Data, path)
		}
	}
	workers := r.Plan.Workers
	if workers < 1 {
		workers = 4
	}
	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(workers)

	plotTask := func(name string, fn func(path string) error) {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := r.Paths.PlotPath(name)
			if err := fn(path); err != nil {
				return errors.Wrapf(err, "plot %s", name)
			}
			add(true, path)
			return nil
		})
	}

	types := columnTypes(num)

	// histograms
	hist := r.histogramColumns(num, types)
	plotTask("histogram_grid", func(path string) error {
		return HistogramGrid(num, hist, r.Plan.GridColumns, path)
	})
	for _, col := range r.Plan.CloserLook {
		col := col
		if !num.Has(col) {
			r.logger().Warn("closer look column not in numerical subset", "column", col)
			continue
		}
		plotTask("histogram__"+col, func(path string) error {
			return Histogram(num, col, "", path)
		})
	}

	// scatterplots
	for _, pair := range r.Plan.ScatterPairs() {
		x, y := pair[0], pair[1]
		if !num.Has(x) || !num.Has(y) {
			r.logger().Warn("scatter column not in numerical subset", "x", x, "y", y)
			continue
		}
		plotTask(fmt.Sprintf("scatterplot__%s-%s", x, y), func(path string) error {
			return Scatter(num, x, y, "", path)
		})
	}

	// barplots
	target := r.Plan.Target
	if cat.Has(target) {
		plotTask("barplot__"+target, func(path string) error {
			return CountBar(cat, target, "", path)
		})
		for _, col := range cat.Columns() {
			col := col
			if col == target {
				continue
			}
			plotTask("barplot_split__"+col, func(path string) error {
				return DualBoolBar(cat, col, target, r.Plan.BarTopGroups, "", path)
			})
		}
	} else {
		r.logger().Warn("target missing from categorical subset, skipping barplots", "target", target)
	}

	// comparative statistics
	for _, col := range num.Columns() {
		col := col
		if types[col] == "boolean" {
			continue
		}
		p.Go(func(ctx context.Context) error {
			stats, err := Comparative(num, col, target)
			if err != nil {
				return err
			}
			path := r.Paths.DataPath("stats__" + col + ".csv")
			if err := stats.SaveCSV(path); err != nil {
				return err
			}
			add(false, path)
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	rep.sort()
	r.logger().Info("analysis complete",
		"plots", len(rep.Plots), "data_files", len(rep.Data), "took", time.Since(start))
	return rep, nil
}

func (r *Runner) correlations(num *frame.Frame, rep *Report) error {
	target := r.Plan.Target
	if !num.Has(target) {
		return errors.Wrapf(frame.ErrMissingColumn, "correlation target %q", target)
	}
	rows, err := CorrelationReport(num, target)
	if err != nil {
		return err
	}
	path := r.Paths.DataPath(correlationFile)
	if err := CorrelationFrame(rows).SaveCSV(path); err != nil {
		return err
	}
	rep.Correlations = rows
	rep.Data = append(rep.Data, path)

	top := TopFields(rows, r.Plan.CorrelationTopN)
	rep.TopFields = top
	name := fmt.Sprintf("correlation_matrix_top%d", r.Plan.CorrelationTopN)
	plotPath := r.Paths.PlotPath(name)
	if err := Heatmap(num, append(append([]string(nil), top...), target), heatmapTitle, plotPath); err != nil {
		return errors.Wrap(err, "correlation heatmap")
	}
	rep.Plots = append(rep.Plots, plotPath)
	r.logger().Info("correlation analysis written", "fields", len(rows), "path", path)
	return nil
}

func (r *Runner) histogramColumns(num *frame.Frame, types map[string]string) []string {
	var cols []string
	for _, c := range num.Columns() {
		if types[c] == "bigint" {
			cols = append(cols, c)
		}
	}
	limit := r.Plan.HistogramMax
	if limit <= 0 || limit > MaxGridPlots {
		limit = MaxGridPlots
	}
	if len(cols) > limit {
		r.logger().Warn("too many integer columns for one grid, truncating", "columns", len(cols), "limit", limit)
		cols = cols[:limit]
	}
	return cols
}

func columnTypes(f *frame.Frame) map[string]string {
	out := map[string]string{}
	for _, c := range export.Columns(f) {
		out[c.Name] = c.Type
	}
	return out
}
