package analysis

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/allstar-rosters/internal/databank"
	"github.com/tyler180/allstar-rosters/internal/frame"
	"github.com/tyler180/allstar-rosters/internal/logging"
)

func TestPearson(t *testing.T) {
	r, p := Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5})
	assert.InDelta(t, 0.77459667, r, 1e-8)
	assert.InDelta(t, 0.12402706, p, 1e-6)

	r, p = Pearson([]float64{1, 2, 3}, []float64{3, 2, 1})
	assert.Equal(t, -1.0, r)
	assert.Equal(t, 0.0, p)

	r, _ = Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.True(t, math.IsNaN(r))

	r, _ = Pearson([]float64{1}, []float64{1})
	assert.True(t, math.IsNaN(r))
}

func TestPearsonColumnsDropsMissingPairs(t *testing.T) {
	f := frame.FromRows([]string{"x", "y"}, [][]any{
		{int64(1), int64(2)},
		{int64(2), nil},
		{int64(2), int64(4)},
		{nil, int64(9)},
		{int64(3), int64(5)},
		{int64(4), int64(4)},
		{int64(5), int64(5)},
	})
	r, p, err := PearsonColumns(f, "x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 0.77459667, r, 1e-8)
	assert.InDelta(t, 0.12402706, p, 1e-6)

	_, _, err = PearsonColumns(f, "x", "nope")
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
}

func TestMagnitude(t *testing.T) {
	cases := map[float64]string{
		0:     "No Correlation",
		1:     "Perfect Correlation",
		-1:    "Perfect Correlation",
		0.12:  "Low (Positive)",
		-0.29: "Low (Negative)",
		0.3:   "Moderate (Positive)",
		-0.59: "Moderate (Negative)",
		0.6:   "High (Positive)",
		-0.95: "Very High (Negative)",
	}
	for r, want := range cases {
		assert.Equal(t, want, Magnitude(r), "r=%v", r)
	}
	assert.Equal(t, "", Magnitude(math.NaN()))
}

func TestCorrelationReportAndTopFields(t *testing.T) {
	f := frame.FromRows([]string{"allstar_flag", "hr", "flat", "neg"}, [][]any{
		{true, int64(40), int64(1), int64(1)},
		{false, int64(5), int64(1), int64(9)},
		{true, int64(35), int64(1), int64(2)},
		{false, int64(10), int64(1), int64(8)},
		{false, int64(12), int64(1), int64(6)},
	})
	rows, err := CorrelationReport(f, "allstar_flag")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "hr", rows[0].Field)
	assert.Greater(t, rows[0].Coefficient, 0.9)
	assert.True(t, rows[0].PracticallySignificant)
	assert.Equal(t, "Very High (Positive)", rows[0].Magnitude)

	assert.True(t, math.IsNaN(rows[1].Coefficient))
	assert.False(t, rows[1].StatisticallySignificant)
	assert.Equal(t, "", rows[1].Magnitude)

	assert.Less(t, rows[2].Coefficient, -0.8)

	assert.Equal(t, []string{"hr", "neg"}, TopFields(rows, 20))
	assert.Equal(t, []string{"hr"}, TopFields(rows, 1))

	out := CorrelationFrame(rows)
	assert.Equal(t, 3, out.Len())
	assert.Nil(t, out.Value(1, "Correlation Coefficient"))
	assert.Nil(t, out.Value(1, "Magnitude"))
}

func TestCorrelationMatrixSymmetric(t *testing.T) {
	f := frame.FromRows([]string{"a", "b"}, [][]any{
		{int64(1), int64(2)}, {int64(2), int64(4)}, {int64(3), int64(7)},
	})
	m, err := CorrelationMatrix(f, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m[0][0])
	assert.Equal(t, m[0][1], m[1][0])
	assert.Greater(t, m[0][1], 0.9)
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{4, 1, 3, 2})
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 2.5, s.Median)
	assert.Equal(t, 1.29, s.StdDev)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 4, s.Count)

	one := Describe([]float64{7})
	assert.True(t, math.IsNaN(one.StdDev))
	assert.Equal(t, 7.0, one.Median)

	empty := Describe(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestQuantile(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, Quantile(x, 0.25))
	assert.Equal(t, 2.5, Quantile(x, 0.5))
	assert.Equal(t, 3.25, Quantile(x, 0.75))
	assert.Equal(t, 4.0, Quantile(x, 1))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestComparative(t *testing.T) {
	f := frame.FromRows([]string{"hr", "allstar_flag"}, [][]any{
		{int64(40), true},
		{int64(30), true},
		{int64(5), false},
		{nil, false},
		{int64(7), false},
	})
	out, err := Comparative(f, "hr", "allstar_flag")
	require.NoError(t, err)
	assert.Equal(t, []string{"statistic", "baseline", "allstar_flag-true", "allstar_flag-false"}, out.Columns())
	require.Equal(t, len(StatNames), out.Len())

	assert.Equal(t, "Mean", out.Value(0, "statistic"))
	assert.Equal(t, 20.5, out.Value(0, "baseline"))
	assert.Equal(t, 35.0, out.Value(0, "allstar_flag-true"))
	assert.Equal(t, 6.0, out.Value(0, "allstar_flag-false"))
	assert.Equal(t, "Count", out.Value(5, "statistic"))
	assert.Equal(t, 4.0, out.Value(5, "baseline"))
	assert.Equal(t, 2.0, out.Value(5, "allstar_flag-false"))

	_, err = Comparative(f, "hr", "nope")
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
}

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan([]byte("target: allstar_flag\nscatter: [a, b, c]\nhistogram_grid_columns: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, p.GridColumns)
	assert.Equal(t, 20, p.CorrelationTopN)
	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}}, p.ScatterPairs())

	_, err = ParsePlan([]byte("target: \"\"\n"))
	assert.Error(t, err)
	_, err = ParsePlan([]byte("histogram_max_plots: 500\n"))
	assert.Error(t, err)
	_, err = ParsePlan([]byte("target: [\n"))
	assert.Error(t, err)
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(b), 8)
	assert.Equal(t, "\x89PNG", string(b[:4]))
}

func plotFrame() *frame.Frame {
	f := frame.New("hr", "rbi", "team", "allstar_flag")
	teams := []string{"NYA", "BOS", "multiple", "ML1"}
	for i := 0; i < 40; i++ {
		f.AppendRow(int64(i%13), int64(i*3%17), teams[i%len(teams)], i%5 == 0)
	}
	f.AppendRow(nil, int64(1), nil, false)
	return f
}

func TestPlotsWritePNG(t *testing.T) {
	dir := t.TempDir()
	f := plotFrame()

	hist := filepath.Join(dir, "plots", "histogram__hr.png")
	require.NoError(t, Histogram(f, "hr", "", hist))
	assertPNG(t, hist)

	grid := filepath.Join(dir, "histogram_grid.png")
	require.NoError(t, HistogramGrid(f, []string{"hr", "rbi", "hr"}, 2, grid))
	assertPNG(t, grid)

	scatter := filepath.Join(dir, "scatter.png")
	require.NoError(t, Scatter(f, "hr", "rbi", "", scatter))
	assertPNG(t, scatter)

	bar := filepath.Join(dir, "bar.png")
	require.NoError(t, CountBar(f, "allstar_flag", "", bar))
	assertPNG(t, bar)

	dual := filepath.Join(dir, "dual.png")
	require.NoError(t, DualBoolBar(f, "team", "allstar_flag", 20, "", dual))
	assertPNG(t, dual)

	heat := filepath.Join(dir, "heat.png")
	require.NoError(t, Heatmap(f, []string{"hr", "rbi", "allstar_flag"}, "", heat))
	assertPNG(t, heat)
}

func TestHistogramEmptyColumn(t *testing.T) {
	f := frame.FromRows([]string{"x"}, [][]any{{nil}, {nil}})
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, Histogram(f, "x", "", path))
	assertPNG(t, path)
}

func TestHistogramGridLimit(t *testing.T) {
	cols := make([]string, MaxGridPlots+1)
	for i := range cols {
		cols[i] = "hr"
	}
	err := HistogramGrid(plotFrame(), cols, 4, filepath.Join(t.TempDir(), "x.png"))
	assert.ErrorIs(t, err, ErrTooManyPlots)
}

func TestTopGroupsSkipsMultiple(t *testing.T) {
	top := TopGroups(plotFrame(), "team", 2)
	assert.Len(t, top, 2)
	assert.False(t, top["multiple"])
}

type dirPaths string

func (d dirPaths) PlotPath(name string) string { return filepath.Join(string(d), "plots", name+".png") }
func (d dirPaths) DataPath(name string) string { return filepath.Join(string(d), "data", name) }

func syntheticMaster(n int) *frame.Frame {
	bools := map[string]bool{
		"team_wild_card_series": true, "team_division_series": true,
		"team_league_series": true, "team_world_series": true,
	}
	for _, c := range databank.FlagColumns {
		bools[c] = true
	}
	numeric := map[string]bool{}
	for _, c := range databank.NumericalColumns {
		numeric[c] = true
	}

	f := frame.New(databank.MasterColumns...)
	for i := 0; i < n; i++ {
		row := make([]any, 0, len(databank.MasterColumns))
		for j, c := range databank.MasterColumns {
			switch {
			case c == "bb_key":
				row = append(row, fmt.Sprintf("p%03d-NYA-1950", i))
			case bools[c]:
				row = append(row, (i+j)%3 == 0)
			case numeric[c]:
				row = append(row, int64((i*7+j)%23))
			default:
				row = append(row, fmt.Sprintf("%s-%d", c, i%4))
			}
		}
		f.AppendRow(row...)
	}
	return f
}

func TestRunWritesReport(t *testing.T) {
	dir := t.TempDir()
	plan := DefaultPlan()
	plan.CloserLook = []string{"total_games", "not_a_column"}
	plan.Scatter = []string{"weight", "height", "games_started"}
	plan.CorrelationTopN = 5

	r := &Runner{Plan: plan, Paths: dirPaths(dir), Log: logging.NewNop()}
	rep, err := r.Run(context.Background(), syntheticMaster(30))
	require.NoError(t, err)

	assert.Len(t, rep.TopFields, 5)
	assert.Len(t, rep.Correlations, len(databank.NumericalColumns)-2)
	assert.FileExists(t, filepath.Join(dir, "data", "databank_correlation_analysis.csv"))
	assert.FileExists(t, filepath.Join(dir, "plots", "correlation_matrix_top5.png"))
	assert.FileExists(t, filepath.Join(dir, "plots", "histogram_grid.png"))
	assert.FileExists(t, filepath.Join(dir, "plots", "histogram__total_games.png"))
	assert.NoFileExists(t, filepath.Join(dir, "plots", "histogram__not_a_column.png"))
	assert.FileExists(t, filepath.Join(dir, "plots", "scatterplot__weight-height.png"))
	assert.FileExists(t, filepath.Join(dir, "plots", "scatterplot__height-games_started.png"))
	assert.FileExists(t, filepath.Join(dir, "plots", "barplot__allstar_flag.png"))
	assert.FileExists(t, filepath.Join(dir, "plots", "barplot_split__primary_position.png"))
	assert.FileExists(t, filepath.Join(dir, "data", "stats__salary.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "data", "stats__allstar_flag.csv"))

	// correlation report, stats per non-boolean numerical column
	assert.Contains(t, rep.Data, filepath.Join(dir, "data", "databank_correlation_analysis.csv"))
	assert.Equal(t, 1+1+1+3+1+len(databank.CategoricalColumns)-2, len(rep.Plots))
}

func TestRunRequiresSubsets(t *testing.T) {
	r := &Runner{Plan: DefaultPlan(), Paths: dirPaths(t.TempDir()), Log: logging.NewNop()}
	_, err := r.Run(context.Background(), frame.New("bb_key"))
	assert.ErrorIs(t, err, frame.ErrMissingColumn)
}
