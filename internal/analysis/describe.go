package analysis

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// StatNames orders the rows of descriptive tables.
var StatNames = []string{"Mean", "Median", "Standard Deviation", "Minimum", "Maximum", "Count"}

// Stats summarises one sample. Empty samples hold NaN except Count.
type Stats struct {
	Mean, Median, StdDev, Min, Max float64
	Count                          int
}

func (s Stats) values() []float64 {
	return []float64{s.Mean, s.Median, s.StdDev, s.Min, s.Max, float64(s.Count)}
}

// Describe computes sample statistics rounded to 2 places. The standard
// deviation uses n-1 and is NaN below two values.
func Describe(values []float64) Stats {
	s := Stats{Count: len(values)}
	if len(values) == 0 {
		s.Mean, s.Median, s.StdDev, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean = Round(stat.Mean(sorted, nil), 2)
	s.Median = Round(Quantile(sorted, 0.5), 2)
	s.StdDev = math.NaN()
	if len(sorted) > 1 {
		s.StdDev = Round(stat.StdDev(sorted, nil), 2)
	}
	s.Min = Round(floats.Min(sorted), 2)
	s.Max = Round(floats.Max(sorted), 2)
	return s
}

// Quantile interpolates linearly between closest ranks of sorted data,
// placing p=0 on the first value and p=1 on the last.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := p * float64(n-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Values collects the numeric cells of col, optionally only from rows where
// keep holds.
func Values(f *frame.Frame, col string, keep func(frame.Row) bool) []float64 {
	var out []float64
	for i := 0; i < f.Len(); i++ {
		r := f.Row(i)
		if keep != nil && !keep(r) {
			continue
		}
		v := r.Get(col)
		if _, isStr := v.(string); isStr {
			continue
		}
		if x, ok := frame.ToFloat(v); ok {
			out = append(out, x)
		}
	}
	return out
}

// Comparative describes col across all rows, then the rows where boolCol
// is true and where it is false. Columns are statistic, baseline,
// <boolCol>-true and <boolCol>-false.
func Comparative(f *frame.Frame, col, boolCol string) (*frame.Frame, error) {
	if missing := f.Missing(col, boolCol); len(missing) > 0 {
		return nil, errors.Wrapf(frame.ErrMissingColumn, "comparative %v", missing)
	}
	isBool := func(want bool) func(frame.Row) bool {
		return func(r frame.Row) bool {
			b, ok := r.Get(boolCol).(bool)
			return ok && b == want
		}
	}
	groups := []Stats{
		Describe(Values(f, col, nil)),
		Describe(Values(f, col, isBool(true))),
		Describe(Values(f, col, isBool(false))),
	}

	out := frame.New("statistic", "baseline", boolCol+"-true", boolCol+"-false")
	for i, name := range StatNames {
		row := []any{name}
		for _, g := range groups {
			row = append(row, nanToNil(g.values()[i]))
		}
		out.AppendRow(row...)
	}
	return out, nil
}
