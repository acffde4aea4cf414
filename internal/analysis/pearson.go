package analysis

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// Pearson returns the correlation coefficient of x and y and its two-sided
// p-value under the null hypothesis of no correlation, both rounded to 8
// places. Constant input yields NaN.
func Pearson(x, y []float64) (r, p float64) {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN(), math.NaN()
	}
	r = stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return r, math.NaN()
	}
	// float error can push |r| a hair past one
	r = math.Max(-1, math.Min(1, r))
	switch {
	case n == 2:
		p = 1
	case math.Abs(r) == 1:
		p = 0
	default:
		df := float64(n - 2)
		t := r * math.Sqrt(df/(1-r*r))
		p = 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	}
	return Round(r, 8), Round(p, 8)
}

// Pairs extracts the rows of f where both columns hold a number.
func Pairs(f *frame.Frame, colX, colY string) (x, y []float64, err error) {
	if missing := f.Missing(colX, colY); len(missing) > 0 {
		return nil, nil, errors.Wrapf(frame.ErrMissingColumn, "pair %v", missing)
	}
	for i := 0; i < f.Len(); i++ {
		a, okA := frame.ToFloat(f.Value(i, colX))
		b, okB := frame.ToFloat(f.Value(i, colY))
		if !okA || !okB {
			continue
		}
		if _, isStr := f.Value(i, colX).(string); isStr {
			continue
		}
		if _, isStr := f.Value(i, colY).(string); isStr {
			continue
		}
		x = append(x, a)
		y = append(y, b)
	}
	return x, y, nil
}

// PearsonColumns correlates two columns after dropping rows missing either.
func PearsonColumns(f *frame.Frame, colX, colY string) (r, p float64, err error) {
	x, y, err := Pairs(f, colX, colY)
	if err != nil {
		return 0, 0, err
	}
	r, p = Pearson(x, y)
	return r, p, nil
}

// Round rounds half away from zero to the given number of places.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
