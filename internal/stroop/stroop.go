// Package stroop analyses response times from a Stroop colour-word
// experiment.
package stroop

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tyler180/allstar-rosters/internal/analysis"
	"github.com/tyler180/allstar-rosters/internal/frame"
)

const (
	Congruent   = "Congruent"
	Incongruent = "Incongruent"
)

var ErrTooFewPairs = errors.New("paired test needs at least two complete pairs")

// Load reads the experiment CSV: one row per participant.
func Load(r io.Reader) (*frame.Frame, error) {
	f, err := frame.ReadCSV(r)
	if err != nil {
		return nil, err
	}
	if missing := f.Missing(Congruent, Incongruent); len(missing) > 0 {
		return nil, errors.Wrapf(frame.ErrMissingColumn, "stroop data %v", missing)
	}
	return f, nil
}

var describeRows = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe summarises both conditions: count, mean, sample std, min,
// quartiles and max.
func Describe(f *frame.Frame) *frame.Frame {
	out := frame.New("statistic", Congruent, Incongruent)
	cols := [][]float64{
		summary(analysis.Values(f, Congruent, nil)),
		summary(analysis.Values(f, Incongruent, nil)),
	}
	for i, name := range describeRows {
		row := []any{name}
		for _, c := range cols {
			if math.IsNaN(c[i]) {
				row = append(row, nil)
				continue
			}
			row = append(row, c[i])
		}
		out.AppendRow(row...)
	}
	return out
}

func summary(xs []float64) []float64 {
	nan := math.NaN()
	if len(xs) == 0 {
		return []float64{0, nan, nan, nan, nan, nan, nan, nan}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	std := nan
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	return []float64{
		float64(len(sorted)),
		stat.Mean(sorted, nil),
		std,
		sorted[0],
		analysis.Quantile(sorted, 0.25),
		analysis.Quantile(sorted, 0.5),
		analysis.Quantile(sorted, 0.75),
		sorted[len(sorted)-1],
	}
}

// Melt reshapes to long format: ParticipantID (from 1, by row),
// ConditionType and ResponseTime. All congruent rows come first.
func Melt(f *frame.Frame) *frame.Frame {
	rows := make([][]any, 0, 2*f.Len())
	for _, cond := range []string{Congruent, Incongruent} {
		for i := 0; i < f.Len(); i++ {
			rows = append(rows, []any{int64(i + 1), cond, f.Value(i, cond)})
		}
	}
	return frame.FromRows([]string{"ParticipantID", "ConditionType", "ResponseTime"}, rows)
}

// TTest is the result of a paired-sample t-test.
type TTest struct {
	T  float64
	DF int
	// P is two-sided; OneSidedP halves it.
	P         float64
	OneSidedP float64
	N         int
}

func (t TTest) String() string {
	return fmt.Sprintf("t-distribution = %g\np-value = %g\nadjusted p-value = %g", t.T, t.P, t.OneSidedP)
}

// PairedTTest tests whether the mean of a-b differs from zero. Pairs
// with a missing side are dropped.
func PairedTTest(a, b []any) (TTest, error) {
	if len(a) != len(b) {
		return TTest{}, errors.Newf("paired samples differ in length: %d vs %d", len(a), len(b))
	}
	var d []float64
	for i := range a {
		x, okA := frame.ToFloat(a[i])
		y, okB := frame.ToFloat(b[i])
		if okA && okB {
			d = append(d, x-y)
		}
	}
	n := len(d)
	if n < 2 {
		return TTest{}, errors.Wrapf(ErrTooFewPairs, "have %d", n)
	}
	mean, sd := stat.MeanStdDev(d, nil)
	df := n - 1
	res := TTest{DF: df, N: n}
	switch {
	case sd == 0 && mean == 0:
		res.T, res.P = math.NaN(), math.NaN()
	case sd == 0:
		res.T, res.P = math.Copysign(math.Inf(1), mean), 0
	default:
		res.T = mean / (sd / math.Sqrt(float64(n)))
		res.P = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.Survival(math.Abs(res.T))
	}
	res.OneSidedP = res.P / 2
	return res, nil
}

// Test runs the paired test of incongruent against congruent times.
func Test(f *frame.Frame) (TTest, error) {
	return PairedTTest(f.Column(Incongruent), f.Column(Congruent))
}

// BoxPlot draws response time per condition.
func BoxPlot(f *frame.Frame, path string) error {
	p := plot.New()
	p.Title.Text = "Stroop response time by condition"
	p.Y.Label.Text = "ResponseTime"
	for i, cond := range []string{Congruent, Incongruent} {
		vals := analysis.Values(f, cond, nil)
		if len(vals) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(40), float64(i), plotter.Values(vals))
		if err != nil {
			return errors.Wrapf(err, "box plot %s", cond)
		}
		box.FillColor = color.RGBA{R: 127, G: 201, B: 127, A: 255}
		p.Add(box)
	}
	p.NominalX(Congruent, Incongruent)
	return analysis.SavePlot(p, 8*vg.Inch, 6*vg.Inch, path)
}

// Histograms draws one response-time histogram per condition side by side.
func Histograms(f *frame.Frame, path string) error {
	row := make([]*plot.Plot, 0, 2)
	for _, cond := range []string{Congruent, Incongruent} {
		p, err := analysis.NewHistogram(analysis.Values(f, cond, nil), "ConditionType = "+cond)
		if err != nil {
			return err
		}
		p.X.Label.Text = "ResponseTime"
		row = append(row, p)
	}
	return analysis.SaveGrid([][]*plot.Plot{row}, 12*vg.Inch, 5*vg.Inch, path)
}

// ecdfPoints steps through the sorted values: the i-th smallest sits at
// height (i+1)/n.
func ecdfPoints(vals []float64) plotter.XYs {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	pts := make(plotter.XYs, len(sorted))
	for i, x := range sorted {
		pts[i].X = x
		pts[i].Y = float64(i+1) / float64(len(sorted))
	}
	return pts
}

var conditionColors = map[string]color.Color{
	Congruent:   color.RGBA{R: 27, G: 158, B: 119, A: 255},
	Incongruent: color.RGBA{R: 217, G: 95, B: 2, A: 255},
}

// ECDF overlays the empirical cumulative distribution of each condition.
func ECDF(f *frame.Frame, path string) error {
	p := plot.New()
	p.Title.Text = "Stroop response time ECDF"
	p.X.Label.Text = "ResponseTime"
	p.Y.Label.Text = "Proportion"
	p.Legend.Top = true
	p.Legend.Left = true
	for _, cond := range []string{Congruent, Incongruent} {
		vals := analysis.Values(f, cond, nil)
		if len(vals) == 0 {
			continue
		}
		line, err := plotter.NewLine(ecdfPoints(vals))
		if err != nil {
			return errors.Wrapf(err, "ecdf %s", cond)
		}
		line.StepStyle = plotter.PostStep
		line.Color = conditionColors[cond]
		p.Add(line)
		p.Legend.Add(cond, line)
	}
	return analysis.SavePlot(p, 8*vg.Inch, 6*vg.Inch, path)
}

// Run writes the summary, the long-format table and the plots, and
// returns the paired test.
func Run(f *frame.Frame, paths analysis.Paths) (TTest, error) {
	if err := Describe(f).SaveCSV(paths.DataPath("stroop_summary.csv")); err != nil {
		return TTest{}, err
	}
	if err := Melt(f).SaveCSV(paths.DataPath("stroop_long.csv")); err != nil {
		return TTest{}, err
	}
	if err := BoxPlot(f, paths.PlotPath("stroop_boxplot")); err != nil {
		return TTest{}, err
	}
	if err := Histograms(f, paths.PlotPath("stroop_histogram")); err != nil {
		return TTest{}, err
	}
	if err := ECDF(f, paths.PlotPath("stroop_ecdf")); err != nil {
		return TTest{}, err
	}
	return Test(f)
}
