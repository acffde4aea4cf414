package analysis

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

const (
	MaxGridPlots     = 100
	defaultGridCols  = 2
	excludedCategory = "multiple"
)

var (
	ErrTooManyPlots = errors.New("too many plots for one grid")

	steelBlue = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	seaGreen  = color.RGBA{R: 46, G: 139, B: 87, A: 255}

	figWidth  = 16 * vg.Inch
	figHeight = 9 * vg.Inch
)

// SavePlot writes p to path, creating the directory. The format follows
// the extension.
func SavePlot(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir plot dir")
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}

// SaveGrid renders a grid of plots into one PNG. Nil cells stay blank.
func SaveGrid(plots [][]*plot.Plot, w, h vg.Length, path string) error {
	rows := len(plots)
	if rows == 0 {
		return nil
	}
	cols := len(plots[0])
	for _, row := range plots {
		for i, p := range row {
			if p == nil {
				blank := plot.New()
				blank.HideAxes()
				row[i] = blank
			}
		}
	}

	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir plot dir")
	}
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer out.Close()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(out); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return out.Close()
}

// binCount picks the larger of the Sturges and Freedman-Diaconis estimates.
func binCount(sorted []float64) int {
	n := len(sorted)
	if n < 2 {
		return 1
	}
	sturges := int(math.Ceil(math.Log2(float64(n)))) + 1
	iqr := Quantile(sorted, 0.75) - Quantile(sorted, 0.25)
	span := sorted[n-1] - sorted[0]
	if iqr <= 0 || span <= 0 {
		return sturges
	}
	width := 2 * iqr * math.Pow(float64(n), -1.0/3)
	fd := int(math.Ceil(span / width))
	bins := max(sturges, fd)
	return min(bins, 200)
}

// NewHistogram bins values into a titled plot.
func NewHistogram(values []float64, title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"
	if len(values) == 0 {
		return p, nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	h, err := plotter.NewHist(plotter.Values(sorted), binCount(sorted))
	if err != nil {
		return nil, errors.Wrapf(err, "histogram %q", title)
	}
	h.FillColor = steelBlue
	h.LineStyle.Color = color.White
	p.Add(h)
	return p, nil
}

// Histogram plots the distribution of one numeric column.
func Histogram(f *frame.Frame, col, title, path string) error {
	if !f.Has(col) {
		return errors.Wrapf(frame.ErrMissingColumn, "histogram %q", col)
	}
	if title == "" {
		title = "Histogram: " + col
	}
	p, err := NewHistogram(Values(f, col, nil), title)
	if err != nil {
		return err
	}
	p.X.Label.Text = col
	return SavePlot(p, figWidth, figHeight, path)
}

// HistogramGrid lays out one histogram per column, gridCols per row.
func HistogramGrid(f *frame.Frame, cols []string, gridCols int, path string) error {
	if len(cols) > MaxGridPlots {
		return errors.Wrapf(ErrTooManyPlots, "%d columns, limit is %d", len(cols), MaxGridPlots)
	}
	if missing := f.Missing(cols...); len(missing) > 0 {
		return errors.Wrapf(frame.ErrMissingColumn, "histogram grid %v", missing)
	}
	if len(cols) == 0 {
		return nil
	}
	if gridCols <= 0 {
		gridCols = defaultGridCols
	}
	rows := (len(cols) + gridCols - 1) / gridCols

	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, gridCols)
	}
	for i, col := range cols {
		p, err := NewHistogram(Values(f, col, nil), "Histogram: "+col)
		if err != nil {
			return err
		}
		plots[i/gridCols][i%gridCols] = p
	}
	w := vg.Length(gridCols) * 6 * vg.Inch
	h := vg.Length(rows) * 3.5 * vg.Inch
	return SaveGrid(plots, w, h, path)
}

// Scatter plots colY against colX over rows holding both.
func Scatter(f *frame.Frame, colX, colY, title, path string) error {
	x, y, err := Pairs(f, colX, colY)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = title
	if title == "" {
		p.Title.Text = fmt.Sprintf("Scatterplot : %s v. %s", colX, colY)
	}
	p.X.Label.Text = colX
	p.Y.Label.Text = colY
	if len(x) > 0 {
		xys := make(plotter.XYs, len(x))
		for i := range x {
			xys[i].X, xys[i].Y = x[i], y[i]
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return errors.Wrap(err, "scatter")
		}
		s.GlyphStyle.Color = steelBlue
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
	}
	return SavePlot(p, figWidth, figHeight, path)
}

type count struct {
	label string
	n     int
}

// counts tallies non-missing values of col over rows where keep holds,
// largest first.
func counts(f *frame.Frame, col string, keep func(frame.Row) bool) []count {
	tally := map[string]int{}
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		if r.Get(col) == nil || (keep != nil && !keep(r)) {
			continue
		}
		tally[r.String(col)]++
	}
	out := make([]count, 0, len(tally))
	for k, n := range tally {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].label < out[j].label
	})
	return out
}

// horizontalBars draws counts with the largest bar on top.
func horizontalBars(p *plot.Plot, cs []count, c color.Color) error {
	if len(cs) == 0 {
		return nil
	}
	vals := make(plotter.Values, len(cs))
	names := make([]string, len(cs))
	for i, cnt := range cs {
		k := len(cs) - 1 - i
		vals[k] = float64(cnt.n)
		names[k] = cnt.label
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(12))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	bars.Horizontal = true
	bars.Color = c
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)
	return nil
}

// CountBar plots row counts per value of col.
func CountBar(f *frame.Frame, col, title, path string) error {
	if !f.Has(col) {
		return errors.Wrapf(frame.ErrMissingColumn, "barplot %q", col)
	}
	p := plot.New()
	p.Title.Text = title
	if title == "" {
		p.Title.Text = fmt.Sprintf("Barplot: %s counts", col)
	}
	p.X.Label.Text = "Count"
	p.Y.Label.Text = col
	if err := horizontalBars(p, counts(f, col, nil), steelBlue); err != nil {
		return err
	}
	return SavePlot(p, figWidth, figHeight, path)
}

// TopGroups returns the topN most frequent values of col, skipping
// "multiple".
func TopGroups(f *frame.Frame, col string, topN int) map[string]bool {
	top := map[string]bool{}
	for _, c := range counts(f, col, nil) {
		if len(top) == topN {
			break
		}
		if c.label == excludedCategory {
			continue
		}
		top[c.label] = true
	}
	return top
}

// DualBoolBar stacks two count barplots of groupCol: rows where boolCol is
// true above rows where it is false. Only the topN groups are drawn.
func DualBoolBar(f *frame.Frame, groupCol, boolCol string, topN int, title, path string) error {
	if missing := f.Missing(groupCol, boolCol); len(missing) > 0 {
		return errors.Wrapf(frame.ErrMissingColumn, "dual barplot %v", missing)
	}
	top := TopGroups(f, groupCol, topN)
	keep := func(want bool) func(frame.Row) bool {
		return func(r frame.Row) bool {
			b, ok := r.Get(boolCol).(bool)
			return ok && b == want && top[r.String(groupCol)]
		}
	}

	upper := plot.New()
	upper.Title.Text = title
	if title == "" {
		upper.Title.Text = fmt.Sprintf("Barplot | Counts by %s: %s", boolCol, groupCol)
	}
	upper.Y.Label.Text = "True"
	if err := horizontalBars(upper, counts(f, groupCol, keep(true)), steelBlue); err != nil {
		return err
	}

	lower := plot.New()
	lower.X.Label.Text = "Count"
	lower.Y.Label.Text = "False"
	if err := horizontalBars(lower, counts(f, groupCol, keep(false)), seaGreen); err != nil {
		return err
	}
	return SaveGrid([][]*plot.Plot{{upper}, {lower}}, figWidth, 2*figHeight, path)
}

type corrGrid [][]float64

func (g corrGrid) Dims() (c, r int)   { return len(g), len(g) }
func (g corrGrid) Z(c, r int) float64 { return g[r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// Heatmap draws an annotated correlation matrix of cols.
func Heatmap(f *frame.Frame, cols []string, title, path string) error {
	m, err := CorrelationMatrix(f, cols)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(corrGrid(m), cm.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 220}

	var (
		xys    plotter.XYs
		labels []string
	)
	for r := range m {
		for c := range m[r] {
			if math.IsNaN(m[r][c]) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, fmt.Sprintf("%.2f", m[r][c]))
		}
	}

	p := plot.New()
	p.Title.Text = title
	if title == "" {
		p.Title.Text = "Correlation Matrix"
	}
	p.Add(hm)
	if len(xys) > 0 {
		lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return errors.Wrap(err, "heatmap labels")
		}
		for i := range lbl.TextStyle {
			lbl.TextStyle[i].XAlign = draw.XCenter
			lbl.TextStyle[i].YAlign = draw.YCenter
		}
		p.Add(lbl)
	}
	p.NominalX(cols...)
	p.NominalY(cols...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	return SavePlot(p, figWidth, figWidth, path)
}
